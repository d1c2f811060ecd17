package types

// NodeID 节点稳定索引
type NodeID int

// LinkID 管段稳定索引
type LinkID int

// NoNode 无效节点
const NoNode NodeID = -1

// NoLink 无效管段
const NoLink LinkID = -1

package model

const TableNameIDSequence = "id_sequences"

// IDSequence 号段表，每次按块预留
type IDSequence struct {
	Name   string `gorm:"column:name;type:varchar(64);primaryKey;comment:序列名"`
	NextID int64  `gorm:"column:next_id;not null;comment:下一个可分配ID"`
}

// TableName IDSequence's table name
func (*IDSequence) TableName() string {
	return TableNameIDSequence
}

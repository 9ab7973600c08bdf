package model

// DefaultEquipmentType is used when a fleet is created implicitly by a visit intake.
const DefaultEquipmentType = "Não especificado"

// Fleet represents a single vehicle known to the workshop.
type Fleet struct {
	ID            string `gorm:"primaryKey;size:64" json:"id"`
	Plate         string `gorm:"index;size:16" json:"plate"`
	EquipmentType string `gorm:"size:128;not null" json:"equipmentType"`
	Carrier       string `gorm:"size:256" json:"carrier"`
}

package model

// MedicalDevice 医疗设备
type MedicalDevice struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Brand          string `json:"brand"`
	Model          string `json:"model"`
	SerialNumber   string `json:"serial_number"`
	Description    string `json:"description,omitempty"`
	Category       Ref    `json:"category"`
	HealthFacility Ref    `json:"health_facility"`
	Timestamps
}

func (d *MedicalDevice) RecordID() int { return d.ID }
func (d *MedicalDevice) Label() string { return d.Name }

// LISDevice 实验室信息系统（LIS）接入设备
type LISDevice struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	IPAddress      string `json:"ip_address,omitempty"`
	Status         string `json:"status"`
	Description    string `json:"description,omitempty"`
	HealthFacility Ref    `json:"health_facility"`
	Timestamps
}

func (d *LISDevice) RecordID() int { return d.ID }
func (d *LISDevice) Label() string { return d.Name }

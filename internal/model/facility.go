package model

// DeviceSummary 医疗机构下挂的设备简要信息
type DeviceSummary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Brand        string `json:"brand,omitempty"`
	Model        string `json:"model,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// HealthFacility 医疗机构
type HealthFacility struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Code           string          `json:"code,omitempty"`
	Address        string          `json:"address,omitempty"`
	City           string          `json:"city,omitempty"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	Type           Ref             `json:"facility_type"`
	MedicalDevices []DeviceSummary `json:"medical_devices"`
	Timestamps
}

func (h *HealthFacility) RecordID() int { return h.ID }
func (h *HealthFacility) Label() string { return h.Name }

// FacilityLocation 地图页使用的机构坐标
type FacilityLocation struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	City      string          `json:"city"`
	Type      string          `json:"type"`
	Address   string          `json:"address,omitempty"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Devices   []DeviceSummary `json:"devices"`
}

// HasCoordinates 经纬度都在合法范围内且不是 (0,0)
func (l *FacilityLocation) HasCoordinates() bool {
	if l.Latitude == 0 && l.Longitude == 0 {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

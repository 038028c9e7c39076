package model

import "strconv"

// Information 资讯/公告
type Information struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Content     string `json:"content"`
	Status      string `json:"status"`
	PublishedAt string `json:"published_at,omitempty"`
	Timestamps
}

func (i *Information) RecordID() int { return i.ID }
func (i *Information) Label() string { return i.Title }

// ServiceReport 设备维修/保养服务报告
type ServiceReport struct {
	ID             int    `json:"id"`
	ReportNumber   string `json:"report_number"`
	ServiceDate    string `json:"service_date"`
	Status         string `json:"status"`
	Complaint      string `json:"complaint,omitempty"`
	ActionTaken    string `json:"action_taken,omitempty"`
	Employee       Ref    `json:"employee"`
	HealthFacility Ref    `json:"health_facility"`
	MedicalDevice  Ref    `json:"medical_device"`
	Timestamps
}

func (r *ServiceReport) RecordID() int { return r.ID }

// Label 无报告编号时退化为 "#<id>"
func (r *ServiceReport) Label() string {
	if r.ReportNumber != "" {
		return r.ReportNumber
	}
	return "#" + strconv.Itoa(r.ID)
}

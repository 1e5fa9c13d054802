package model

import (
	"testing"
	"time"
)

func TestEquipmentStatus_IsValid(t *testing.T) {
	for _, tc := range []struct {
		status EquipmentStatus
		want   bool
	}{
		{EquipmentActive, true},
		{EquipmentInactive, true},
		{EquipmentInShop, true},
		{EquipmentSold, true},
		{EquipmentStatus(""), false},
		{EquipmentStatus("scrapped"), false},
	} {
		if got := tc.status.IsValid(); got != tc.want {
			t.Errorf("EquipmentStatus(%q).IsValid() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestPriority_IsValid(t *testing.T) {
	for _, tc := range []struct {
		p    Priority
		want bool
	}{
		{PriorityEmergency, true},
		{PriorityLow, true},
		{Priority("urgent"), false},
	} {
		if got := tc.p.IsValid(); got != tc.want {
			t.Errorf("Priority(%q).IsValid() = %v, want %v", tc.p, got, tc.want)
		}
	}
}

func TestEquipment_Vendor(t *testing.T) {
	acme := &Vendor{ID: "v1", Name: "Acme"}
	for _, tc := range []struct {
		name string
		e    *Equipment
		want *Vendor
	}{
		{"nil equipment", nil, nil},
		{"no mappings", &Equipment{}, nil},
		{"mapping without device", &Equipment{IoTDevices: []*EquipmentIoTDevice{{ID: "m1"}}}, nil},
		{"device without vendor", &Equipment{IoTDevices: []*EquipmentIoTDevice{{Device: &IoTDevice{ID: "d1"}}}}, nil},
		{"full chain", &Equipment{IoTDevices: []*EquipmentIoTDevice{
			{Device: &IoTDevice{ID: "d1", Vendor: acme}},
			{Device: &IoTDevice{ID: "d2", Vendor: &Vendor{Name: "Other"}}},
		}}, acme},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.e.Vendor(); got != tc.want {
				t.Fatalf("Vendor() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEquipment_ScheduleAgreement(t *testing.T) {
	sa := &ScheduleAgreement{ID: "sa1"}
	e := &Equipment{TypeAllocations: []*TypeAllocation{{LineItem: &ScheduleLineItem{ScheduleAgreement: sa}}}}
	if got := e.ScheduleAgreement(); got != sa {
		t.Fatalf("ScheduleAgreement() = %v", got)
	}
	if got := (&Equipment{TypeAllocations: []*TypeAllocation{{}}}).ScheduleAgreement(); got != nil {
		t.Fatalf("missing line item should yield nil, got %v", got)
	}
	if got := sa.FirstAttachment(); got != nil {
		t.Fatalf("FirstAttachment() = %v, want nil", got)
	}
}

func TestPMSchedule_DueStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}
	for _, tc := range []struct {
		name     string
		p        PMSchedule
		want     DueStatus
		wantDays int
		ok       bool
	}{
		{"no due date", PMSchedule{}, "", 0, false},
		{"overdue", PMSchedule{NextDueAt: at(-36 * time.Hour)}, DueOverdue, -2, true},
		{"due soon", PMSchedule{NextDueAt: at(10 * 24 * time.Hour)}, DueSoon, 10, true},
		{"window edge", PMSchedule{NextDueAt: at(DueSoonWindow)}, DueOK, 30, true},
		{"completed", PMSchedule{NextDueAt: at(-time.Hour), Status: ScheduleCompleted}, DueOK, -1, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.p.DueStatus(now)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("DueStatus = %q, %v; want %q, %v", got, ok, tc.want, tc.ok)
			}
			days, ok := tc.p.DaysUntilDue(now)
			if days != tc.wantDays || ok != tc.ok {
				t.Fatalf("DaysUntilDue = %d, %v; want %d, %v", days, ok, tc.wantDays, tc.ok)
			}
		})
	}
}

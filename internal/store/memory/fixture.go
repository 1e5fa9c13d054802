package memory

import (
	"time"

	"github.com/alfredjeanlab/fleet/internal/model"
)

// FixtureNow is the clock the fixture data set is laid out around.
var FixtureNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Fixture returns a store seeded with a small fleet: two accounts, six
// units, their devices, one contract, PM/DOT schedules, service requests
// and workorders. Serve --memory and tests run against it.
func Fixture() *Store {
	day := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	f := func(v float64) *float64 { return &v }
	year := func(y int) *int { return &y }

	acme := &model.Account{ID: "acc-1", AccountNumber: "A-100", Name: "Acme Logistics"}
	blue := &model.Account{ID: "acc-2", AccountNumber: "B-200", Name: "Blue Freight"}

	vAcme := &model.Vendor{ID: "v-acme", Name: "Acme"}
	vBravo := &model.Vendor{ID: "v-bravo", Name: "Bravo"}
	vZeta := &model.Vendor{ID: "v-zeta", Name: "Zeta"}

	mapping := func(id, equipmentID string, v *model.Vendor, active bool, installed *time.Time) *model.EquipmentIoTDevice {
		return &model.EquipmentIoTDevice{
			ID: id, EquipmentID: equipmentID, DeviceID: "dev-" + id, Active: active, InstalledAt: *installed,
			Device: &model.IoTDevice{ID: "dev-" + id, SerialNumber: "SN-" + id, VendorID: v.ID, Vendor: v},
		}
	}

	agreement := &model.ScheduleAgreement{
		ID: "sa-1", MasterAgreementID: "ma-1", Number: "SA-1", TermType: model.TermFixed,
		EndDate:         day(2026, time.January, 31),
		MasterAgreement: &model.MasterAgreement{ID: "ma-1", AccountID: acme.ID, Number: "MA-1", StartDate: day(2023, time.February, 1)},
		Attachments: []*model.Attachment{{
			ID: "att-1", ScheduleAgreementID: "sa-1", URL: "https://files.example.com/sa-1.pdf",
			MimeType: "application/pdf", CreatedAt: *day(2023, time.February, 1),
		}},
	}

	e1 := &model.Equipment{
		ID: "e1", AccountID: acme.ID, UnitNumber: "T-100", VIN: "1FUJGLDR0CLBP8834", Make: "Freightliner",
		Model: "Cascadia", Year: year(2021), EquipmentType: "tractor", Status: model.EquipmentActive,
		CreatedAt: *day(2024, time.January, 10), UpdatedAt: *day(2024, time.January, 10), Account: acme,
		Telematics: &model.Telematics{EquipmentID: "e1", Latitude: f(40.0), Longitude: f(-75.0),
			Odometer: f(120500), LastPingAt: day(2024, time.May, 31)},
		IoTDevices: []*model.EquipmentIoTDevice{mapping("m1", "e1", vZeta, true, day(2024, time.January, 12))},
		TypeAllocations: []*model.TypeAllocation{{
			ID: "ta-1", EquipmentID: "e1", LineItemID: "li-1",
			LineItem: &model.ScheduleLineItem{ID: "li-1", ScheduleAgreementID: "sa-1", Description: "Tractors", ScheduleAgreement: agreement},
		}},
	}
	e2 := &model.Equipment{
		ID: "e2", AccountID: acme.ID, UnitNumber: "T-200", VIN: "3AKJHHDR5JSJY1234", Make: "Freightliner",
		Model: "Cascadia", Year: year(2019), EquipmentType: "tractor", Status: model.EquipmentActive,
		CreatedAt: *day(2024, time.February, 3), UpdatedAt: *day(2024, time.February, 3), Account: acme,
		Telematics: &model.Telematics{EquipmentID: "e2", Latitude: f(40.05), Longitude: f(-75.2)},
		IoTDevices: []*model.EquipmentIoTDevice{mapping("m2", "e2", vAcme, true, day(2024, time.February, 5))},
	}
	e3 := &model.Equipment{
		ID: "e3", AccountID: acme.ID, UnitNumber: "T-300", VIN: "1XKYD49X0EJ123456", Make: "Kenworth",
		Model: "T680", Year: year(2018), EquipmentType: "tractor", Status: model.EquipmentInactive,
		CreatedAt: *day(2024, time.February, 3), UpdatedAt: *day(2024, time.March, 1), Account: acme,
		IoTDevices: []*model.EquipmentIoTDevice{mapping("m3", "e3", vAcme, true, day(2024, time.February, 6))},
	}
	e4 := &model.Equipment{
		ID: "e4", AccountID: acme.ID, UnitNumber: "R-400", VIN: "1UYVS2538CU654321", Make: "Utility",
		Model: "3000R", Year: year(2020), EquipmentType: "reefer", Status: model.EquipmentActive,
		CreatedAt: *day(2024, time.March, 15), UpdatedAt: *day(2024, time.March, 15), Account: acme,
		Telematics: &model.Telematics{EquipmentID: "e4", Latitude: f(41.5), Longitude: f(-73.9)},
		IoTDevices: []*model.EquipmentIoTDevice{mapping("m4", "e4", vBravo, false, day(2023, time.December, 1))},
	}
	e5 := &model.Equipment{
		ID: "e5", AccountID: acme.ID, UnitNumber: "T-500", VIN: "4V4NC9EH7LN000555", Make: "Volvo",
		Model: "VNL", EquipmentType: "tractor", Status: model.EquipmentInShop,
		CreatedAt: *day(2024, time.April, 2), UpdatedAt: *day(2024, time.April, 2), Account: acme,
	}
	e6 := &model.Equipment{
		ID: "e6", AccountID: blue.ID, UnitNumber: "X-900", VIN: "1M2AX07C5EM000900", Make: "Mack",
		Model: "Anthem", Year: year(2022), EquipmentType: "tractor", Status: model.EquipmentActive,
		CreatedAt: *day(2024, time.January, 20), UpdatedAt: *day(2024, time.January, 20), Account: blue,
		IoTDevices: []*model.EquipmentIoTDevice{mapping("m6", "e6", vAcme, true, day(2024, time.January, 21))},
	}

	s := New()
	s.AddEquipment(e1, e2, e3, e4, e5, e6)
	s.AddPMSchedules(
		&model.PMSchedule{ID: "pm1", EquipmentID: "e1", Kind: model.ScheduleDOT, Description: "Annual DOT inspection",
			IntervalDays: 365, LastCompletedAt: day(2023, time.May, 20), NextDueAt: day(2024, time.May, 20),
			Status: model.ScheduleScheduled, CreatedAt: *day(2023, time.May, 20), Equipment: e1},
		&model.PMSchedule{ID: "pm2", EquipmentID: "e2", Kind: model.SchedulePM, Description: "Oil change",
			IntervalDays: 90, NextDueAt: day(2024, time.June, 15),
			Status: model.ScheduleScheduled, CreatedAt: *day(2024, time.March, 17), Equipment: e2},
		&model.PMSchedule{ID: "pm3", EquipmentID: "e4", Kind: model.SchedulePM, Description: "Reefer unit service",
			IntervalDays: 180, NextDueAt: day(2024, time.September, 1),
			Status: model.ScheduleScheduled, CreatedAt: *day(2024, time.March, 15), Equipment: e4},
		&model.PMSchedule{ID: "pm4", EquipmentID: "e2", Kind: model.ScheduleDOT, Description: "Annual DOT inspection",
			IntervalDays: 365, LastCompletedAt: day(2024, time.April, 28), NextDueAt: day(2024, time.May, 1),
			Status: model.ScheduleCompleted, CreatedAt: *day(2023, time.May, 1), Equipment: e2},
		&model.PMSchedule{ID: "pm5", EquipmentID: "e6", Kind: model.SchedulePM, Description: "Oil change",
			IntervalDays: 90, NextDueAt: day(2024, time.May, 1),
			Status: model.ScheduleScheduled, CreatedAt: *day(2024, time.February, 1), Equipment: e6},
	)
	s.AddServiceRequests(
		&model.ServiceRequest{ID: "sr1", EquipmentID: "e2", Type: model.RequestERS, Status: model.RequestInProgress, CreatedAt: *day(2024, time.May, 30)},
		&model.ServiceRequest{ID: "sr2", EquipmentID: "e4", Type: model.RequestERS, Status: model.RequestCompleted, CreatedAt: *day(2024, time.April, 2)},
		&model.ServiceRequest{ID: "sr3", EquipmentID: "e1", Type: model.RequestTire, Status: model.RequestInProgress, CreatedAt: *day(2024, time.May, 31)},
	)
	s.AddWorkorders(
		&model.Workorder{ID: "wo1", Number: "WO-1001", EquipmentID: "e1", VendorID: vAcme.ID, Priority: model.PriorityEmergency,
			Status: model.WorkorderInProgress, Description: "Brake failure", StartAt: day(2024, time.January, 2),
			EndAt: day(2024, time.January, 5), TotalCost: f(1200.5), CreatedAt: *day(2024, time.January, 2), Equipment: e1, Vendor: vAcme},
		&model.Workorder{ID: "wo2", Number: "WO-1002", EquipmentID: "e2", VendorID: vBravo.ID, Priority: model.PriorityNormal,
			Status: model.WorkorderOpen, Description: "Replace mirror", StartAt: day(2023, time.December, 30),
			EndAt: day(2024, time.January, 3), CreatedAt: *day(2023, time.December, 29), Equipment: e2, Vendor: vBravo},
		&model.Workorder{ID: "wo3", Number: "WO-1003", EquipmentID: "e4", Priority: model.PriorityLow,
			Status: model.WorkorderCompleted, Description: "Reefer alarm", TotalCost: f(310),
			CreatedAt: *day(2024, time.April, 3), Equipment: e4},
		&model.Workorder{ID: "wo4", Number: "WO-2001", EquipmentID: "e6", VendorID: vZeta.ID, Priority: model.PriorityHigh,
			Status: model.WorkorderOpen, Description: "Tire blowout", StartAt: day(2024, time.May, 30),
			CreatedAt: *day(2024, time.May, 30), Equipment: e6, Vendor: vZeta},
	)
	return s
}

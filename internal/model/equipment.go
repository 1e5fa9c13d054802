package model

import "time"

// EquipmentStatus is the lifecycle state of a piece of equipment.
type EquipmentStatus string

const (
	EquipmentActive   EquipmentStatus = "active"
	EquipmentInactive EquipmentStatus = "inactive"
	EquipmentInShop   EquipmentStatus = "in_shop"
	EquipmentSold     EquipmentStatus = "sold"
)

// String returns the string representation of the status.
func (s EquipmentStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s EquipmentStatus) IsValid() bool {
	switch s {
	case EquipmentActive, EquipmentInactive, EquipmentInShop, EquipmentSold:
		return true
	}
	return false
}

// Account owns equipment and agreements.
type Account struct {
	ID            string `json:"id"`
	AccountNumber string `json:"account_number"`
	Name          string `json:"name"`
}

// Vendor supplies IoT devices and performs work.
type Vendor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Telematics is the latest position and odometer reported for a unit.
type Telematics struct {
	EquipmentID string     `json:"equipment_id"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Odometer    *float64   `json:"odometer,omitempty"`
	LastPingAt  *time.Time `json:"last_ping_at,omitempty"`
}

// IoTDevice is a telematics device installed on equipment.
type IoTDevice struct {
	ID           string  `json:"id"`
	SerialNumber string  `json:"serial_number"`
	VendorID     string  `json:"vendor_id,omitempty"`
	Vendor       *Vendor `json:"vendor,omitempty"`
}

// EquipmentIoTDevice maps a device onto a unit.
type EquipmentIoTDevice struct {
	ID          string     `json:"id"`
	EquipmentID string     `json:"equipment_id"`
	DeviceID    string     `json:"device_id"`
	Active      bool       `json:"active"`
	InstalledAt time.Time  `json:"installed_at"`
	Device      *IoTDevice `json:"device,omitempty"`
}

// Equipment is one unit of the fleet. Account and Telematics are always
// loaded with the row; IoTDevices and TypeAllocations only when included.
type Equipment struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	UnitNumber    string          `json:"unit_number"`
	VIN           string          `json:"vin"`
	Make          string          `json:"make"`
	Model         string          `json:"model"`
	Year          *int            `json:"year,omitempty"`
	EquipmentType string          `json:"equipment_type"`
	Status        EquipmentStatus `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Account         *Account              `json:"account,omitempty"`
	Telematics      *Telematics           `json:"telematics,omitempty"`
	IoTDevices      []*EquipmentIoTDevice `json:"iot_devices,omitempty"`
	TypeAllocations []*TypeAllocation     `json:"type_allocations,omitempty"`
}

// Vendor walks the first IoT device mapping to its device vendor.
// It returns nil when any hop is missing.
func (e *Equipment) Vendor() *Vendor {
	if e == nil || len(e.IoTDevices) == 0 {
		return nil
	}
	m := e.IoTDevices[0]
	if m == nil || m.Device == nil {
		return nil
	}
	return m.Device.Vendor
}

// ScheduleAgreement walks the first type allocation to the schedule
// agreement financing the unit. It returns nil when any hop is missing.
func (e *Equipment) ScheduleAgreement() *ScheduleAgreement {
	if e == nil || len(e.TypeAllocations) == 0 {
		return nil
	}
	ta := e.TypeAllocations[0]
	if ta == nil || ta.LineItem == nil {
		return nil
	}
	return ta.LineItem.ScheduleAgreement
}

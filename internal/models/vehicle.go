// server/internal/models/vehicle.go
package models

// Fallback coordinate used for new vehicles and for vehicles that never reported a fix.
const (
	DefaultLat = -34.6037
	DefaultLng = -58.3816
)

// LastUpdatedLayout is the civil-time layout of Vehicle.LastUpdated (DD-MM-YYYY HH:MM).
const LastUpdatedLayout = "02-01-2006 15:04"

type Vehicle struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	UserID        uint    `gorm:"not null;index" json:"userID"`
	Name          string  `gorm:"size:255;not null" json:"name"`
	Type          string  `gorm:"size:100;not null" json:"type"`
	Plate         string  `gorm:"size:100;not null" json:"plate"`
	Status        string  `gorm:"size:32;not null;default:active" json:"status"`
	DeviceID      *string `gorm:"size:255;uniqueIndex" json:"deviceID"`
	// DevicePhone is the SIM number of the tracker, informational only.
	DevicePhone   string  `gorm:"size:32" json:"devicePhone"`
	Lat           float64 `gorm:"not null;default:-34.6037" json:"lat"`
	Lng           float64 `gorm:"not null;default:-58.3816" json:"lng"`
	Speed         float64 `gorm:"not null;default:0" json:"speed"`
	SignalQuality int     `gorm:"not null;default:0" json:"signalQuality"`
	VehicleOn     bool    `gorm:"not null;default:false" json:"vehicleOn"`
	Shutdown      bool    `gorm:"not null;default:false" json:"shutdown"`
	TransmitAudio bool    `gorm:"not null;default:false" json:"transmitAudio"`
	// LastUpdated stays a preformatted local-time string, it is echoed verbatim to devices.
	LastUpdated *string `gorm:"size:32" json:"lastUpdated"`

	History []LocationHistory `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (v *Vehicle) LastUpdatedString() string {
	if v.LastUpdated == nil {
		return ""
	}
	return *v.LastUpdated
}

func (v *Vehicle) DeviceIDString() string {
	if v.DeviceID == nil {
		return ""
	}
	return *v.DeviceID
}

package models

import "time"

type Period string

const (
	PeriodMorning   Period = "Morning"
	PeriodAfternoon Period = "Afternoon"
	PeriodEvening   Period = "Evening"
	PeriodNight     Period = "Night"
)

var AllPeriods = []Period{PeriodMorning, PeriodAfternoon, PeriodEvening, PeriodNight}

func IsValidPeriod(p Period) bool {
	switch p {
	case PeriodMorning, PeriodAfternoon, PeriodEvening, PeriodNight:
		return true
	}
	return false
}

const (
	BookingVideoCall   = "video_call"
	BookingVoiceCall   = "voice_call"
	BookingClinicVisit = "clinic_visit"

	SlotStatusAvailable = "available"
	SlotStatusBooked    = "booked"
	SlotStatusCancelled = "cancelled"

	AppointmentStatusPending   = "pending"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCancelled = "cancelled"

	PaymentStatusPending = "pending"

	CancelledByUser   = "user"
	CancelledByDoctor = "doctor"
	CancelledByAdmin  = "admin"

	UnavailabilityTypeOther = "other"
)

var validBookingTypes = map[string]bool{
	BookingVideoCall:   true,
	BookingVoiceCall:   true,
	BookingClinicVisit: true,
}

func IsValidBookingType(v string) bool {
	return validBookingTypes[v]
}

var validAppointmentStatuses = map[string]bool{
	AppointmentStatusPending:   true,
	AppointmentStatusConfirmed: true,
	AppointmentStatusCancelled: true,
}

func IsValidAppointmentStatus(v string) bool {
	return validAppointmentStatuses[v]
}

// ScheduleTemplate is the recurring weekly working-hours configuration for one weekday.
type ScheduleTemplate struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	DoctorID       string    `bson:"doctorId" json:"doctorId"`
	DayOfWeek      int       `bson:"dayOfWeek" json:"dayOfWeek"`
	IsAvailable    bool      `bson:"isAvailable" json:"isAvailable"`
	StartTime      string    `bson:"startTime" json:"startTime"`
	EndTime        string    `bson:"endTime" json:"endTime"`
	Periods        []Period  `bson:"periods" json:"periods"`
	BreakStartTime string    `bson:"breakStartTime,omitempty" json:"breakStartTime,omitempty"`
	BreakEndTime   string    `bson:"breakEndTime,omitempty" json:"breakEndTime,omitempty"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SlotToggles maps a display label ("9:00 AM") to an explicit availability flag.
// A label absent from the map is available.
type SlotToggles map[string]bool

func (t SlotToggles) Enabled(label string) bool {
	if len(t) == 0 {
		return true
	}
	v, ok := t[label]
	return !ok || v
}

type ScheduleOverride struct {
	ID               string      `bson:"_id,omitempty" json:"id"`
	DoctorID         string      `bson:"doctorId" json:"doctorId"`
	Date             string      `bson:"date" json:"date"`
	IsDayAvailable   bool        `bson:"isDayAvailable" json:"isDayAvailable"`
	OpeningTime      string      `bson:"openingTime" json:"openingTime"`
	ClosingTime      string      `bson:"closingTime" json:"closingTime"`
	SlotDuration     int         `bson:"slotDuration" json:"slotDuration"`
	SlotAvailability SlotToggles `bson:"slotAvailability" json:"slotAvailability"`
	UpdatedAt        time.Time   `bson:"updatedAt" json:"updatedAt"`
}

type UnavailabilityWindow struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	DoctorID    string    `bson:"doctorId" json:"doctorId"`
	StartDate   string    `bson:"startDate" json:"startDate"`
	EndDate     string    `bson:"endDate" json:"endDate"`
	Reason      string    `bson:"reason" json:"reason"`
	Type        string    `bson:"type" json:"type"`
	IsRecurring bool      `bson:"isRecurring" json:"isRecurring"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// TimeSlot is a materialized, bookable unit. Date is YYYY-MM-DD in the clinic timezone
// and StartTime/EndTime are HH:MM, so lexical order matches chronological order.
type TimeSlot struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	DoctorID      string    `bson:"doctorId" json:"doctorId"`
	Date          string    `bson:"date" json:"date"`
	StartTime     string    `bson:"startTime" json:"startTime"`
	EndTime       string    `bson:"endTime" json:"endTime"`
	Label         string    `bson:"label" json:"label"`
	Period        Period    `bson:"period" json:"period"`
	Status        string    `bson:"status" json:"status"`
	BookingType   *string   `bson:"bookingType" json:"bookingType"`
	AppointmentID *string   `bson:"appointmentId" json:"appointmentId"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Appointment struct {
	ID                 string     `bson:"_id,omitempty" json:"id"`
	UserID             string     `bson:"userId" json:"userId"`
	DoctorID           string     `bson:"doctorId" json:"doctorId"`
	TimeSlotID         string     `bson:"timeSlotId" json:"timeSlotId"`
	AppointmentType    string     `bson:"appointmentType" json:"appointmentType"`
	Notes              string     `bson:"notes" json:"notes"`
	Status             string     `bson:"status" json:"status"`
	ConsultationFee    int        `bson:"consultationFee" json:"consultationFee"`
	PaymentStatus      string     `bson:"paymentStatus" json:"paymentStatus"`
	CancelledAt        *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancelledBy        string     `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	CancellationReason string     `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	CreatedAt          time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type Doctor struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Specialty string    `bson:"specialty" json:"specialty"`
	Email     string    `bson:"email" json:"email"`
	Fee       int       `bson:"fee" json:"fee"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type User struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

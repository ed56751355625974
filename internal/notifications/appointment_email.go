package notifications

import (
	"bytes"
	"html/template"

	"github.com/Ritika1223/jensieBackend/internal/models"
)

const patientConfirmationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hello {{.PatientName}},</p>
  <p>Your appointment is confirmed.</p>
  <ul>
    <li>Doctor: Dr. {{.DoctorName}}{{if .Specialty}} ({{.Specialty}}){{end}}</li>
    <li>Date: {{.Date}}</li>
    <li>Time: {{.Time}}</li>
    <li>Consultation: {{.TypeLabel}}</li>
    <li>Fee: {{.Fee}}</li>
    <li>Booking reference: {{.AppointmentID}}</li>
  </ul>
  {{if .Notes}}<p>Your notes: {{.Notes}}</p>{{end}}
  <p>Please be ready a few minutes before the start time.</p>
</body>
</html>`

const doctorAlertTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hello Dr. {{.DoctorName}},</p>
  <p>A new appointment has been booked.</p>
  <ul>
    <li>Patient: {{.PatientName}}</li>
    <li>Date: {{.Date}}</li>
    <li>Time: {{.Time}}</li>
    <li>Consultation: {{.TypeLabel}}</li>
    <li>Booking reference: {{.AppointmentID}}</li>
  </ul>
  {{if .Notes}}<p>Patient notes: {{.Notes}}</p>{{end}}
</body>
</html>`

const cancellationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hello {{.PatientName}},</p>
  <p>Your appointment with Dr. {{.DoctorName}} on {{.Date}} at {{.Time}} has been cancelled.</p>
  {{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
  <p>Booking reference: {{.AppointmentID}}</p>
</body>
</html>`

var (
	patientConfirmationTmpl = template.Must(template.New("patient_confirmation").Parse(patientConfirmationTemplate))
	doctorAlertTmpl         = template.Must(template.New("doctor_alert").Parse(doctorAlertTemplate))
	cancellationTmpl        = template.Must(template.New("cancellation").Parse(cancellationTemplate))
)

type emailData struct {
	PatientName   string
	DoctorName    string
	Specialty     string
	Date          string
	Time          string
	TypeLabel     string
	Fee           int
	Notes         string
	Reason        string
	AppointmentID string
}

func renderEmail(tmpl *template.Template, b Booking) (string, error) {
	timeLabel := b.Slot.Label
	if timeLabel == "" {
		timeLabel = b.Slot.StartTime
	}
	data := emailData{
		PatientName:   b.Patient.Name,
		DoctorName:    b.Doctor.Name,
		Specialty:     b.Doctor.Specialty,
		Date:          b.Slot.Date,
		Time:          timeLabel,
		TypeLabel:     appointmentTypeLabel(b.Appointment.AppointmentType),
		Fee:           b.Appointment.ConsultationFee,
		Notes:         b.Appointment.Notes,
		Reason:        b.Appointment.CancellationReason,
		AppointmentID: b.Appointment.ID,
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func appointmentTypeLabel(value string) string {
	switch value {
	case models.BookingVideoCall:
		return "Video call"
	case models.BookingVoiceCall:
		return "Voice call"
	case models.BookingClinicVisit:
		return "Clinic visit"
	default:
		return value
	}
}

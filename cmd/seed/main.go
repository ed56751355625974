package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/app"
	"github.com/Ritika1223/jensieBackend/internal/auth"
	"github.com/Ritika1223/jensieBackend/internal/config"
	"github.com/Ritika1223/jensieBackend/internal/doctorschedule"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/schedule"

	"github.com/brianvoe/gofakeit/v7"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var specialties = []string{
	"General Physician",
	"Cardiology",
	"Dermatology",
	"Pediatrics",
	"Orthopedics",
	"Gynecology",
	"Psychiatry",
	"ENT",
}

type weekday struct {
	day     time.Weekday
	start   string
	end     string
	periods []models.Period
}

// Monday to Saturday; Saturday is a half day.
var week = []weekday{
	{time.Monday, "09:00", "18:00", []models.Period{models.PeriodMorning, models.PeriodAfternoon, models.PeriodEvening}},
	{time.Tuesday, "09:00", "18:00", []models.Period{models.PeriodMorning, models.PeriodAfternoon, models.PeriodEvening}},
	{time.Wednesday, "09:00", "18:00", []models.Period{models.PeriodMorning, models.PeriodAfternoon, models.PeriodEvening}},
	{time.Thursday, "09:00", "18:00", []models.Period{models.PeriodMorning, models.PeriodAfternoon, models.PeriodEvening}},
	{time.Friday, "09:00", "18:00", []models.Period{models.PeriodMorning, models.PeriodAfternoon, models.PeriodEvening}},
	{time.Saturday, "10:00", "13:00", []models.Period{models.PeriodMorning}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := app.NewLogger("seed")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deps, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer deps.Close(context.Background())

	gofakeit.Seed(time.Now().UnixNano())

	doctorCount := envInt("SEED_DOCTORS", 5)
	patientCount := envInt("SEED_PATIENTS", 20)

	doctors, err := seedDoctors(ctx, deps, doctorCount)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patients, err := seedPatients(ctx, deps, patientCount)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	today := schedule.FormatDate(time.Now().In(cfg.Timezone))
	until := schedule.FormatDate(time.Now().In(cfg.Timezone).AddDate(0, 0, cfg.SlotHorizonDays))
	for _, d := range doctors {
		res, err := deps.Materializer.MaterializeRange(ctx, d.ID, today, until)
		if err != nil {
			log.Fatalf("seed slots for %s: %v", d.ID, err)
		}
		log.Printf("seeded %d slots for %s (%s)", res.Inserted, d.Name, d.Specialty)
	}

	if deps.JWT != nil && len(doctors) > 0 && len(patients) > 0 {
		printToken(deps.JWT, "doctor", auth.Principal{UserID: doctors[0].ID, Role: auth.RoleDoctor})
		printToken(deps.JWT, "patient", auth.Principal{UserID: patients[0].ID, Role: auth.RoleUser})
	}

	log.Println("seed completed")
}

func seedDoctors(ctx context.Context, deps *app.App, count int) ([]models.Doctor, error) {
	admin := auth.Principal{UserID: "seed", Role: auth.RoleAdmin}
	doctors := make([]models.Doctor, 0, count)
	for i := 0; i < count; i++ {
		d := models.Doctor{
			ID:        primitive.NewObjectID().Hex(),
			Name:      "Dr. " + gofakeit.Name(),
			Specialty: specialties[gofakeit.Number(0, len(specialties)-1)],
			Email:     gofakeit.Email(),
			Fee:       gofakeit.Number(3, 15) * 100,
			CreatedAt: time.Now().In(deps.Cfg.Timezone),
		}
		if err := deps.Store.Doctors.Create(ctx, d); err != nil {
			return nil, err
		}
		for _, w := range week {
			_, err := deps.Schedules.SaveTemplate(ctx, admin, d.ID, int(w.day), doctorschedule.TemplateRequest{
				IsAvailable:    true,
				StartTime:      w.start,
				EndTime:        w.end,
				Periods:        w.periods,
				BreakStartTime: breakStart(w),
				BreakEndTime:   breakEnd(w),
			})
			if err != nil {
				return nil, fmt.Errorf("template %s/%s: %w", d.ID, w.day, err)
			}
		}
		doctors = append(doctors, d)
	}
	return doctors, nil
}

func seedPatients(ctx context.Context, deps *app.App, count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		u := models.User{
			ID:        primitive.NewObjectID().Hex(),
			Name:      gofakeit.Name(),
			Email:     gofakeit.Email(),
			Phone:     gofakeit.Phone(),
			CreatedAt: time.Now().In(deps.Cfg.Timezone),
		}
		if err := deps.Store.Users.Create(ctx, u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func breakStart(w weekday) string {
	if w.end <= "13:00" {
		return ""
	}
	return "13:00"
}

func breakEnd(w weekday) string {
	if w.end <= "13:00" {
		return ""
	}
	return "14:00"
}

func printToken(m *auth.Manager, label string, p auth.Principal) {
	token, err := m.NewAccessToken(p)
	if err != nil {
		log.Printf("seed token %s: %v", label, err)
		return
	}
	fmt.Printf("%s %s token: %s\n", label, p.UserID, token)
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

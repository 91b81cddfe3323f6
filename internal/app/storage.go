package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
	"github.com/jwalitptl/hospital-api/pkg/logger"
)

// Repositories bundles the storage ports for the configured driver.
type Repositories struct {
	Doctors      repository.DoctorRepository
	Patients     repository.PatientRepository
	Availability repository.AvailabilityRepository
	Appointments repository.AppointmentRepository
	Outbox       repository.OutboxRepository
	Health       repository.Pinger

	close func() error
}

func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// OpenRepositories connects to the configured storage driver.
func OpenRepositories(cfg config.DatabaseConfig, log *logger.Logger) (*Repositories, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		base := postgres.NewBaseRepository(db)
		return &Repositories{
			Doctors:      postgres.NewDoctorRepository(base),
			Patients:     postgres.NewPatientRepository(base),
			Availability: postgres.NewAvailabilityRepository(base),
			Appointments: postgres.NewAppointmentRepository(base),
			Outbox:       postgres.NewOutboxRepository(base),
			Health:       db,
			close:        db.Close,
		}, nil

	case "memory":
		store := memory.NewStore()
		if err := seedDemo(store); err != nil {
			return nil, err
		}
		log.Warn("Using in-memory storage; data is lost on restart")
		return &Repositories{
			Doctors:      memory.NewDoctorRepository(store),
			Patients:     memory.NewPatientRepository(store),
			Availability: memory.NewAvailabilityRepository(store),
			Appointments: memory.NewAppointmentRepository(store),
			Outbox:       memory.NewOutboxRepository(store),
			Health:       store,
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// seedDemo gives the memory driver one doctor working weekdays 09:00-17:00
// and one patient.
func seedDemo(store *memory.Store) error {
	doctor := store.AddDoctor(&model.Doctor{Name: "Dr. Demo", Email: "demo.doctor@hospital.local", Specialization: "General Practice"})
	store.AddPatient(&model.Patient{Name: "Demo Patient", Email: "demo.patient@hospital.local"})

	days := make([]*model.WeeklyAvailability, 0, 5)
	for day := 1; day <= 5; day++ {
		days = append(days, &model.WeeklyAvailability{
			DayOfWeek:   time.Weekday(day),
			StartTime:   model.NewClock(9, 0),
			EndTime:     model.NewClock(17, 0),
			IsAvailable: true,
		})
	}
	return memory.NewAvailabilityRepository(store).ReplaceForDoctor(context.Background(), doctor.ID, days)
}

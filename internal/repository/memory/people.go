package memory

import (
	"context"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type doctorRepository struct {
	store *Store
}

func NewDoctorRepository(store *Store) repository.DoctorRepository {
	return &doctorRepository{store: store}
}

func (r *doctorRepository) Get(_ context.Context, id int64) (*model.Doctor, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	d, ok := r.store.doctors[id]
	if !ok || d.Deleted() {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *doctorRepository) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := r.Get(ctx, id)
	return err == nil, nil
}

type patientRepository struct {
	store *Store
}

func NewPatientRepository(store *Store) repository.PatientRepository {
	return &patientRepository{store: store}
}

func (r *patientRepository) Get(_ context.Context, id int64) (*model.Patient, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.patients[id]
	if !ok || p.Deleted() {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *patientRepository) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := r.Get(ctx, id)
	return err == nil, nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/domain/assignment"
)

// AccountsRepo is an in-process credential store. Email uniqueness is enforced
// under the same lock as the insert, like the database constraint.
type AccountsRepo struct {
	mu       sync.RWMutex
	items    map[string]account.Account // id -> account
	byEmail  map[string]string          // email -> id
	assigned map[string]string          // patient id -> therapist id
}

func NewAccountsRepo() *AccountsRepo {
	return &AccountsRepo{
		items:    make(map[string]account.Account),
		byEmail:  make(map[string]string),
		assigned: make(map[string]string),
	}
}

func (r *AccountsRepo) Create(_ context.Context, a account.Account) (account.Account, error) {
	a.Email = account.NormalizeEmail(a.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[a.Email]; taken {
		return account.Account{}, account.ErrEmailTaken
	}

	r.items[a.ID] = a
	r.byEmail[a.Email] = a.ID

	return a, nil
}

func (r *AccountsRepo) GetByEmail(_ context.Context, email string) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[account.NormalizeEmail(email)]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return r.withTherapist(r.items[id]), nil
}

func (r *AccountsRepo) GetByID(_ context.Context, id string) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return r.withTherapist(a), nil
}

func (r *AccountsRepo) ListPatientsByTherapist(_ context.Context, therapistID string) ([]account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]account.Account, 0)
	for patientID, tid := range r.assigned {
		if tid == therapistID {
			out = append(out, r.withTherapist(r.items[patientID]))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// Assign mirrors the Postgres assignment rules: unknown email, non-patient
// accounts and patients owned by another therapist are rejected.
func (r *AccountsRepo) Assign(_ context.Context, therapistID, patientEmail, _ string) (account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[account.NormalizeEmail(patientEmail)]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}

	patient := r.items[id]
	if !patient.IsPatient() {
		return account.Account{}, assignment.ErrNotAPatient
	}

	if current, ok := r.assigned[id]; ok && current != therapistID {
		return account.Account{}, assignment.ErrAlreadyAssigned
	}

	r.assigned[id] = therapistID
	return r.withTherapist(patient), nil
}

func (r *AccountsRepo) Unassign(_ context.Context, therapistID, patientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.assigned[patientID] != therapistID {
		return assignment.ErrNotFound
	}
	delete(r.assigned, patientID)
	return nil
}

// caller holds the lock
func (r *AccountsRepo) withTherapist(a account.Account) account.Account {
	a.AssignedTherapistID = nil
	if tid, ok := r.assigned[a.ID]; ok {
		t := tid
		a.AssignedTherapistID = &t
	}
	return a
}

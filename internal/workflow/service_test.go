package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/budgetease/api/internal/repo"
)

type stubStore struct {
	requests map[uuid.UUID]*Request
	needs    map[uuid.UUID]*Need
}

func newStubStore() *stubStore {
	return &stubStore{
		requests: map[uuid.UUID]*Request{},
		needs:    map[uuid.UUID]*Need{},
	}
}

func (s *stubStore) GetRequest(ctx context.Context, id uuid.UUID) (Request, error) {
	req, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return *req, nil
}

func (s *stubStore) CreateRequest(ctx context.Context, input CreateRequestInput) (Request, error) {
	req := Request{
		ID:         uuid.New(),
		Title:      input.Title,
		Status:     StatusDraft,
		UserID:     input.UserID,
		Department: input.Department,
		CreatedAt:  time.Now(),
	}
	for _, needInput := range input.Needs {
		need := Need{
			ID:        uuid.New(),
			RequestID: req.ID,
			Title:     needInput.Title,
			Quantity:  needInput.Quantity,
		}
		s.needs[need.ID] = &need
		req.Needs = append(req.Needs, need)
	}
	s.requests[req.ID] = &req
	return req, nil
}

func (s *stubStore) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status string, stamps StatusStamps) (Request, error) {
	req, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	req.Status = status
	// même sémantique que le COALESCE SQL : jamais de remise à NULL
	if stamps.ValidatedAt != nil {
		req.ValidatedAt, req.ValidatedBy = stamps.ValidatedAt, stamps.ValidatedBy
	}
	if stamps.ApprovedAt != nil {
		req.ApprovedAt, req.ApprovedBy = stamps.ApprovedAt, stamps.ApprovedBy
	}
	if stamps.RejectedAt != nil {
		req.RejectedAt, req.RejectedBy = stamps.RejectedAt, stamps.RejectedBy
	}
	return *req, nil
}

func (s *stubStore) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(s.requests, id)
	return nil
}

func (s *stubStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Request, error) {
	var out []Request
	for _, req := range s.requests {
		if req.UserID == userID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *stubStore) ListByDepartment(ctx context.Context, department string) ([]Request, error) {
	var out []Request
	for _, req := range s.requests {
		if req.Department == department {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *stubStore) ListNeeds(ctx context.Context, requestID uuid.UUID) ([]Need, error) {
	var out []Need
	for _, need := range s.needs {
		if need.RequestID == requestID {
			out = append(out, *need)
		}
	}
	return out, nil
}

func (s *stubStore) GetNeed(ctx context.Context, id uuid.UUID) (Need, error) {
	need, ok := s.needs[id]
	if !ok {
		return Need{}, ErrNeedNotFound
	}
	return *need, nil
}

func (s *stubStore) SiblingTitleExists(ctx context.Context, requestID uuid.UUID, title string, exclude *uuid.UUID) (bool, error) {
	for _, need := range s.needs {
		if need.RequestID != requestID || need.Title != title {
			continue
		}
		if exclude != nil && need.ID == *exclude {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (s *stubStore) CreateNeed(ctx context.Context, input NeedInput) (Need, error) {
	need := Need{
		ID:            uuid.New(),
		RequestID:     input.RequestID,
		Title:         input.Title,
		Description:   input.Description,
		CategoryID:    input.CategoryID,
		Quantity:      input.Quantity,
		EstimatedCost: input.EstimatedCost,
	}
	s.needs[need.ID] = &need
	return need, nil
}

func (s *stubStore) UpdateNeed(ctx context.Context, id uuid.UUID, input NeedInput) (Need, error) {
	need, ok := s.needs[id]
	if !ok {
		return Need{}, ErrNeedNotFound
	}
	need.Title = input.Title
	need.Description = input.Description
	need.CategoryID = input.CategoryID
	need.Quantity = input.Quantity
	need.EstimatedCost = input.EstimatedCost
	return *need, nil
}

func (s *stubStore) DeleteNeed(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.needs[id]; !ok {
		return ErrNeedNotFound
	}
	delete(s.needs, id)
	return nil
}

type stubUsers struct {
	users map[uuid.UUID]repo.User
}

func (s *stubUsers) GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error) {
	user, ok := s.users[id]
	if !ok {
		return repo.User{}, repo.ErrNotFound
	}
	return user, nil
}

type fixture struct {
	svc      *Service
	store    *stubStore
	users    *stubUsers
	personal uuid.UUID
	head     uuid.UUID
	director uuid.UUID
	admin    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newStubStore()
	users := &stubUsers{users: map[uuid.UUID]repo.User{}}
	svc := NewService(store, users)
	svc.now = func() time.Time { return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC) }

	f := &fixture{svc: svc, store: store, users: users}
	f.personal = f.addUser("Alice Martin", repo.RolePersonal)
	f.head = f.addUser("Bruno Caron", repo.RoleDepartmentHead)
	f.director = f.addUser("Claire Dubois", repo.RoleDirector)
	f.admin = f.addUser("Denis Admin", repo.RoleAdmin)
	return f
}

func (f *fixture) addUser(name, role string) uuid.UUID {
	return f.addUserIn(name, role, repo.DepartmentNone)
}

func (f *fixture) addUserIn(name, role, department string) uuid.UUID {
	id := uuid.New()
	f.users.users[id] = repo.User{ID: id, Name: name, Role: role, Department: department, Active: true}
	return id
}

func (f *fixture) addRequest(owner uuid.UUID, status string) uuid.UUID {
	return f.addRequestIn(owner, status, repo.DepartmentNone)
}

func (f *fixture) addRequestIn(owner uuid.UUID, status, department string) uuid.UUID {
	req := Request{ID: uuid.New(), Title: "Budget labo", Status: status, UserID: owner, Department: department}
	f.store.requests[req.ID] = &req
	return req.ID
}

func TestCreateRequestValidation(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{Title: "ab", Department: repo.DepartmentInformatique, UserID: f.personal}); !errors.Is(err, ErrTitleTooShort) {
		t.Fatalf("titre court : attendu ErrTitleTooShort, obtenu %v", err)
	}
	if _, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{Title: "Matériel", Department: "NOPE", UserID: f.personal}); !errors.Is(err, ErrInvalidDepartment) {
		t.Fatalf("département : attendu ErrInvalidDepartment, obtenu %v", err)
	}

	req, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{Title: "  Matériel labo  ", Department: repo.DepartmentInformatique, UserID: f.personal})
	if err != nil {
		t.Fatalf("création : %v", err)
	}
	if req.Title != "Matériel labo" {
		t.Fatalf("titre non normalisé : %q", req.Title)
	}
	if req.Status != StatusDraft {
		t.Fatalf("statut initial %q, attendu DRAFT", req.Status)
	}
}

func TestCreateRequestWithInitialNeeds(t *testing.T) {
	f := newFixture(t)

	cat := uuid.New()
	input := CreateRequestInput{
		Title:      "Équipement labo",
		Department: repo.DepartmentInformatique,
		UserID:     f.personal,
		Needs: []NeedInput{
			{Title: "Microscope", CategoryID: cat, Quantity: 2},
			{Title: "Ordinateur portable", CategoryID: cat, Quantity: 5},
		},
	}

	req, err := f.svc.CreateRequest(context.Background(), input)
	if err != nil {
		t.Fatalf("création : %v", err)
	}
	if len(req.Needs) != 2 {
		t.Fatalf("attendu 2 besoins, obtenu %d", len(req.Needs))
	}

	input.Needs = append(input.Needs, NeedInput{Title: "Microscope", CategoryID: cat, Quantity: 1})
	if _, err := f.svc.CreateRequest(context.Background(), input); !errors.Is(err, ErrDuplicateTitle) {
		t.Fatalf("doublon dans le formulaire : attendu ErrDuplicateTitle, obtenu %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		actor   func(*fixture) uuid.UUID
		wantErr error
	}{
		{"chef soumet un brouillon", StatusDraft, StatusSubmitted, func(f *fixture) uuid.UUID { return f.head }, nil},
		{"personnel ne soumet pas", StatusDraft, StatusSubmitted, func(f *fixture) uuid.UUID { return f.personal }, ErrForbidden},
		{"chef valide une soumission", StatusSubmitted, StatusValidated, func(f *fixture) uuid.UUID { return f.head }, nil},
		{"directeur approuve une validation", StatusValidated, StatusApproved, func(f *fixture) uuid.UUID { return f.director }, nil},
		{"chef n'approuve pas", StatusValidated, StatusApproved, func(f *fixture) uuid.UUID { return f.head }, ErrForbidden},
		{"admin approuve", StatusValidated, StatusApproved, func(f *fixture) uuid.UUID { return f.admin }, nil},
		{"directeur révoque une approbation", StatusApproved, StatusValidated, func(f *fixture) uuid.UUID { return f.director }, nil},
		{"chef ne révoque pas une approbation", StatusApproved, StatusValidated, func(f *fixture) uuid.UUID { return f.head }, ErrForbidden},
		{"rejet renvoyé en brouillon", StatusRejected, StatusDraft, func(f *fixture) uuid.UUID { return f.head }, nil},
		{"brouillon vers approuvé interdit", StatusDraft, StatusApproved, func(f *fixture) uuid.UUID { return f.admin }, ErrInvalidTransition},
		{"rejeté vers approuvé interdit", StatusRejected, StatusApproved, func(f *fixture) uuid.UUID { return f.admin }, ErrInvalidTransition},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			reqID := f.addRequest(f.personal, tc.from)

			_, err := f.svc.UpdateRequestStatus(context.Background(), reqID, tc.to, tc.actor(f))
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("transition %s→%s : %v", tc.from, tc.to, err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("transition %s→%s : attendu %v, obtenu %v", tc.from, tc.to, tc.wantErr, err)
			}
		})
	}
}

func TestStatusStampsAttribution(t *testing.T) {
	f := newFixture(t)
	reqID := f.addRequest(f.personal, StatusSubmitted)

	req, err := f.svc.UpdateRequestStatus(context.Background(), reqID, StatusValidated, f.head)
	if err != nil {
		t.Fatalf("validation : %v", err)
	}
	if req.ValidatedAt == nil || req.ValidatedBy == nil || *req.ValidatedBy != "Bruno Caron" {
		t.Fatalf("trace de validation absente ou erronée : %+v", req)
	}

	req, err = f.svc.UpdateRequestStatus(context.Background(), reqID, StatusApproved, f.director)
	if err != nil {
		t.Fatalf("approbation : %v", err)
	}
	if req.ApprovedAt == nil || req.ApprovedBy == nil || *req.ApprovedBy != "Claire Dubois" {
		t.Fatalf("trace d'approbation absente ou erronée : %+v", req)
	}
}

func TestRejectionPreservesApprovalStamps(t *testing.T) {
	f := newFixture(t)
	reqID := f.addRequest(f.personal, StatusValidated)

	if _, err := f.svc.UpdateRequestStatus(context.Background(), reqID, StatusApproved, f.director); err != nil {
		t.Fatalf("approbation : %v", err)
	}

	req, err := f.svc.UpdateRequestStatus(context.Background(), reqID, StatusRejected, f.director)
	if err != nil {
		t.Fatalf("rejet : %v", err)
	}
	if req.ApprovedAt == nil || req.ApprovedBy == nil {
		t.Fatal("le rejet ne doit pas effacer la trace d'approbation")
	}
	if req.RejectedAt == nil || req.RejectedBy == nil {
		t.Fatal("le rejet doit poser sa propre trace")
	}
}

func TestUpdateStatusUnknownActorAndStatus(t *testing.T) {
	f := newFixture(t)
	reqID := f.addRequest(f.personal, StatusDraft)

	if _, err := f.svc.UpdateRequestStatus(context.Background(), reqID, "ARCHIVED", f.head); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("statut inconnu : attendu ErrInvalidStatus, obtenu %v", err)
	}
	if _, err := f.svc.UpdateRequestStatus(context.Background(), reqID, StatusSubmitted, uuid.New()); !errors.Is(err, ErrActorNotFound) {
		t.Fatalf("acteur inconnu : attendu ErrActorNotFound, obtenu %v", err)
	}
}

func TestDeleteRequestGuards(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		actor   func(*fixture) uuid.UUID
		owner   bool
		wantErr error
	}{
		{"propriétaire supprime son brouillon", StatusDraft, func(f *fixture) uuid.UUID { return f.personal }, true, nil},
		{"propriétaire bloqué après approbation", StatusApproved, func(f *fixture) uuid.UUID { return f.personal }, true, ErrForbidden},
		{"non-propriétaire bloqué", StatusDraft, func(f *fixture) uuid.UUID { return f.head }, false, ErrForbidden},
		{"directeur supprime une approuvée", StatusApproved, func(f *fixture) uuid.UUID { return f.director }, false, nil},
		{"admin supprime une approuvée", StatusApproved, func(f *fixture) uuid.UUID { return f.admin }, false, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			reqID := f.addRequest(f.personal, tc.status)

			err := f.svc.DeleteRequest(context.Background(), reqID, tc.actor(f))
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("suppression : %v", err)
				}
				if _, ok := f.store.requests[reqID]; ok {
					t.Fatal("la demande existe encore")
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("attendu %v, obtenu %v", tc.wantErr, err)
			}
		})
	}
}

func TestListDepartmentRequestsAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		actor   func(*fixture) uuid.UUID
		wantErr error
	}{
		{"sans rôle", func(f *fixture) uuid.UUID { return f.addUser("Nouveau Compte", "") }, ErrForbidden},
		{"personnel", func(f *fixture) uuid.UUID { return f.personal }, ErrForbidden},
		{"chef d'un autre département", func(f *fixture) uuid.UUID {
			return f.addUserIn("Chef Civil", repo.RoleDepartmentHead, repo.DepartmentCivil)
		}, ErrForbidden},
		{"chef du département", func(f *fixture) uuid.UUID {
			return f.addUserIn("Chef Info", repo.RoleDepartmentHead, repo.DepartmentInformatique)
		}, nil},
		{"directeur", func(f *fixture) uuid.UUID { return f.director }, nil},
		{"admin", func(f *fixture) uuid.UUID { return f.admin }, nil},
		{"acteur inconnu", func(f *fixture) uuid.UUID { return uuid.New() }, ErrActorNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			owner := f.addUserIn("Alice Info", repo.RolePersonal, repo.DepartmentInformatique)
			f.addRequestIn(owner, StatusSubmitted, repo.DepartmentInformatique)

			requests, err := f.svc.ListDepartmentRequests(context.Background(), repo.DepartmentInformatique, tc.actor(f))
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("listing : %v", err)
				}
				if len(requests) != 1 {
					t.Fatalf("%d demandes, attendu 1", len(requests))
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("attendu %v, obtenu %v", tc.wantErr, err)
			}
		})
	}
}

func TestGetRequestScoping(t *testing.T) {
	tests := []struct {
		name    string
		actor   func(*fixture, uuid.UUID) uuid.UUID
		wantErr error
	}{
		{"propriétaire", func(f *fixture, owner uuid.UUID) uuid.UUID { return owner }, nil},
		{"autre personnel", func(f *fixture, _ uuid.UUID) uuid.UUID {
			return f.addUserIn("Bob Info", repo.RolePersonal, repo.DepartmentInformatique)
		}, ErrForbidden},
		{"chef du département", func(f *fixture, _ uuid.UUID) uuid.UUID {
			return f.addUserIn("Chef Info", repo.RoleDepartmentHead, repo.DepartmentInformatique)
		}, nil},
		{"chef d'un autre département", func(f *fixture, _ uuid.UUID) uuid.UUID {
			return f.addUserIn("Chef Civil", repo.RoleDepartmentHead, repo.DepartmentCivil)
		}, ErrForbidden},
		{"directeur", func(f *fixture, _ uuid.UUID) uuid.UUID { return f.director }, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			owner := f.addUserIn("Alice Info", repo.RolePersonal, repo.DepartmentInformatique)
			reqID := f.addRequestIn(owner, StatusDraft, repo.DepartmentInformatique)

			_, err := f.svc.GetRequest(context.Background(), reqID, tc.actor(f, owner))
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("lecture : %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("attendu %v, obtenu %v", tc.wantErr, err)
			}
		})
	}
}

func TestAddNeedDuplicateTitle(t *testing.T) {
	f := newFixture(t)
	reqID := f.addRequest(f.personal, StatusDraft)
	cat := uuid.New()

	first := NeedInput{RequestID: reqID, Title: "Équipement labo", CategoryID: cat, Quantity: 1}
	if _, err := f.svc.AddNeed(context.Background(), first, f.personal); err != nil {
		t.Fatalf("premier besoin : %v", err)
	}

	// correspondance exacte : la casse différencie
	variant := NeedInput{RequestID: reqID, Title: "équipement labo", CategoryID: cat, Quantity: 1}
	if _, err := f.svc.AddNeed(context.Background(), variant, f.personal); err != nil {
		t.Fatalf("variante de casse : %v", err)
	}

	dup := NeedInput{RequestID: reqID, Title: "Équipement labo", CategoryID: cat, Quantity: 3}
	if _, err := f.svc.AddNeed(context.Background(), dup, f.personal); !errors.Is(err, ErrDuplicateTitle) {
		t.Fatalf("doublon : attendu ErrDuplicateTitle, obtenu %v", err)
	}
}

func TestUpdateNeedExcludesSelfFromDuplicateCheck(t *testing.T) {
	f := newFixture(t)
	reqID := f.addRequest(f.personal, StatusDraft)
	cat := uuid.New()

	need, err := f.svc.AddNeed(context.Background(), NeedInput{RequestID: reqID, Title: "Ordinateur portable", CategoryID: cat, Quantity: 2}, f.personal)
	if err != nil {
		t.Fatalf("création : %v", err)
	}

	// garder son propre titre n'est pas un doublon
	updated, err := f.svc.UpdateNeed(context.Background(), need.ID, NeedInput{Title: "Ordinateur portable", CategoryID: cat, Quantity: 4}, f.personal)
	if err != nil {
		t.Fatalf("mise à jour : %v", err)
	}
	if updated.Quantity != 4 {
		t.Fatalf("quantité %d, attendu 4", updated.Quantity)
	}
}

func TestNeedValidation(t *testing.T) {
	f := newFixture(t)
	reqID := f.addRequest(f.personal, StatusDraft)
	cat := uuid.New()
	negative := -10.0

	tests := []struct {
		name    string
		input   NeedInput
		wantErr error
	}{
		{"titre vide", NeedInput{RequestID: reqID, CategoryID: cat, Quantity: 1}, ErrTitleTooShort},
		{"quantité nulle", NeedInput{RequestID: reqID, Title: "Écran", CategoryID: cat, Quantity: 0}, ErrInvalidQuantity},
		{"coût négatif", NeedInput{RequestID: reqID, Title: "Écran", CategoryID: cat, Quantity: 1, EstimatedCost: &negative}, ErrInvalidCost},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.AddNeed(context.Background(), tc.input, f.personal); !errors.Is(err, tc.wantErr) {
				t.Fatalf("attendu %v, obtenu %v", tc.wantErr, err)
			}
		})
	}
}

func TestNeedMutationBlockedOnApprovedRequest(t *testing.T) {
	f := newFixture(t)
	reqID := f.addRequest(f.personal, StatusApproved)
	cat := uuid.New()

	input := NeedInput{RequestID: reqID, Title: "Imprimante", CategoryID: cat, Quantity: 1}
	if _, err := f.svc.AddNeed(context.Background(), input, f.personal); !errors.Is(err, ErrForbidden) {
		t.Fatalf("demande approuvée : attendu ErrForbidden, obtenu %v", err)
	}

	// directeur passe outre
	if _, err := f.svc.AddNeed(context.Background(), input, f.director); err != nil {
		t.Fatalf("directeur sur demande approuvée : %v", err)
	}
}

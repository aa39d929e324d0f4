// Package account covers the sign-in and medical-record screens: it keeps the
// token in the auth provider and mirrors the medical record locally so it can
// be shown without a network or a session.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"

	"sosai/internal/auth"
	"sosai/internal/reasoning"
	"sosai/internal/store"
)

const (
	MedicalKey      = "myMedical"
	ProfileImageKey = "profileImg"
)

var ErrNoToken = errors.New("not signed in")

type Backend interface {
	Signup(ctx context.Context, email, password, name string) (reasoning.Session, error)
	Login(ctx context.Context, email, password string) (reasoning.Session, error)
	Medical(ctx context.Context, cred string) (reasoning.MedicalRecord, error)
	PutMedical(ctx context.Context, cred string, rec reasoning.MedicalRecord) (reasoning.MedicalRecord, error)
}

type Service struct {
	backend Backend
	auth    *auth.Provider
	store   store.Store
}

func New(backend Backend, provider *auth.Provider, st store.Store) *Service {
	return &Service{backend: backend, auth: provider, store: st}
}

// Signup registers and, when the server issues a token right away, signs in.
func (s *Service) Signup(ctx context.Context, email, password, name string) (reasoning.Session, error) {
	sess, err := s.backend.Signup(ctx, email, password, name)
	if err != nil {
		return sess, err
	}
	if sess.Token != "" {
		if err := s.auth.Save(sess.Token); err != nil {
			return sess, fmt.Errorf("save token: %w", err)
		}
	}
	return sess, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (reasoning.Session, error) {
	sess, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return sess, err
	}
	if err := s.auth.Save(sess.Token); err != nil {
		return sess, fmt.Errorf("save token: %w", err)
	}
	return sess, nil
}

func (s *Service) Logout() error {
	return s.auth.Clear()
}

// Medical returns the server record when signed in, refreshing the local
// copy, and the local copy otherwise.
func (s *Service) Medical(ctx context.Context) (reasoning.MedicalRecord, error) {
	tok, ok := s.auth.Token()
	if !ok {
		return s.cached()
	}

	rec, err := s.backend.Medical(ctx, tok)
	if err != nil {
		return reasoning.MedicalRecord{}, err
	}
	if err := s.cache(rec); err != nil {
		log.Warn("Failed to cache medical record", "err", err)
	}
	return rec, nil
}

// SaveMedical stores rec locally and, when signed in, on the server. The
// server's version wins when it answers.
func (s *Service) SaveMedical(ctx context.Context, rec reasoning.MedicalRecord) (reasoning.MedicalRecord, error) {
	tok, ok := s.auth.Token()
	if ok {
		saved, err := s.backend.PutMedical(ctx, tok, rec)
		if err != nil {
			return reasoning.MedicalRecord{}, err
		}
		rec = saved
	}
	if err := s.cache(rec); err != nil {
		return rec, fmt.Errorf("cache medical record: %w", err)
	}
	return rec, nil
}

// ProfileImage returns the stored profile picture reference, if any.
func (s *Service) ProfileImage() (string, bool) {
	v, err := s.store.Get(ProfileImageKey)
	if err != nil {
		return "", false
	}
	return v, v != ""
}

// cached decodes the local record over an empty one, so a partial or older
// copy still yields every field.
func (s *Service) cached() (reasoning.MedicalRecord, error) {
	var rec reasoning.MedicalRecord
	raw, err := s.store.Get(MedicalKey)
	if errors.Is(err, store.ErrNotFound) {
		return rec, nil
	}
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		log.Warn("Ignoring corrupt medical cache", "err", err)
		return reasoning.MedicalRecord{}, nil
	}
	return rec, nil
}

func (s *Service) cache(rec reasoning.MedicalRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.store.Set(MedicalKey, string(data))
}

package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Session is what signup and login return. Token may be empty for
// deployments that do not issue one on signup.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// MedicalRecord holds the user-editable fields only; user_id, created_at and
// updated_at are managed by the server and dropped on decode.
type MedicalRecord struct {
	Name              string `json:"name"`
	BirthDate         string `json:"birth_date"`
	BloodType         string `json:"blood_type"`
	MedicalHistory    string `json:"medical_history"`
	SurgeryHistory    string `json:"surgery_history"`
	Medications       string `json:"medications"`
	Allergies         string `json:"allergies"`
	EmergencyContacts string `json:"emergency_contacts"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Signup(ctx context.Context, email, password, name string) (Session, error) {
	raw, err := c.postJSON(ctx, "/auth/signup", "", signupRequest{Email: email, Password: password, Name: name})
	if err != nil {
		return Session{}, err
	}
	return decode[Session](raw)
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	raw, err := c.postJSON(ctx, "/auth/login", "", loginRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}
	return decode[Session](raw)
}

// Medical fetches the caller's record. A token is always required.
func (c *Client) Medical(ctx context.Context, cred string) (MedicalRecord, error) {
	if err := checkAuth(AuthRequired, cred); err != nil {
		return MedicalRecord{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/medical"), nil)
	if err != nil {
		return MedicalRecord{}, fmt.Errorf("create request: %w", err)
	}
	raw, err := c.do(req, cred)
	if err != nil {
		return MedicalRecord{}, err
	}
	return decode[MedicalRecord](raw)
}

func (c *Client) PutMedical(ctx context.Context, cred string, rec MedicalRecord) (MedicalRecord, error) {
	if err := checkAuth(AuthRequired, cred); err != nil {
		return MedicalRecord{}, err
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return MedicalRecord{}, fmt.Errorf("marshal record: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint("/medical"), bytes.NewReader(body))
	if err != nil {
		return MedicalRecord{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req, cred)
	if err != nil {
		return MedicalRecord{}, err
	}
	return decode[MedicalRecord](raw)
}

func decode[T any](raw []byte) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, unavailable(0, string(raw), err)
	}
	return out, nil
}

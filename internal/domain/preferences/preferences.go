// Package preferences keeps small per-practitioner settings: the doctor
// printed on prescriptions and notes, and the workspace's remembered login.
package preferences

import (
	"context"
	"strings"
)

const (
	KeyDoctorName      = "doctor_name"
	KeyDoctorLicense   = "doctor_license"
	KeyRememberedEmail = "remembered_email"
	KeySession         = "session"
)

// editable lists the keys a client may write through the API. The session
// and remembered e-mail belong to the device, not the account.
var editable = map[string]bool{
	KeyDoctorName:    true,
	KeyDoctorLicense: true,
}

// Editable reports whether key may be set through the API.
func Editable(key string) bool { return editable[key] }

// Store is a string key-value store. Get returns "" for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

// Doctor is the prescribing doctor printed on documents.
type Doctor struct {
	Name    string `json:"doctor_name"`
	License string `json:"doctor_license"`
}

// DoctorDefaults reads the stored doctor. A nil store yields an empty Doctor.
func DoctorDefaults(ctx context.Context, s Store) (Doctor, error) {
	if s == nil {
		return Doctor{}, nil
	}
	name, err := s.Get(ctx, KeyDoctorName)
	if err != nil {
		return Doctor{}, err
	}
	license, err := s.Get(ctx, KeyDoctorLicense)
	if err != nil {
		return Doctor{}, err
	}
	return Doctor{Name: name, License: license}, nil
}

// Fill sets name and license from d where they are blank.
func (d Doctor) Fill(name, license *string) {
	if strings.TrimSpace(*name) == "" {
		*name = d.Name
	}
	if strings.TrimSpace(*license) == "" {
		*license = d.License
	}
}

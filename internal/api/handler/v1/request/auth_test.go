package request

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignupRequest_Validate(t *testing.T) {
	req := require.New(t)

	valid := SignupRequest{
		Email:           "alice@example.com",
		Password:        "passw0rd123",
		ConfirmPassword: "passw0rd123",
		Name:            "Alice",
	}
	req.NoError(valid.Validate())

	cases := []struct {
		name   string
		mutate func(r *SignupRequest)
	}{
		{"missing email", func(r *SignupRequest) { r.Email = "" }},
		{"bad email", func(r *SignupRequest) { r.Email = "not-an-email" }},
		{"too short password", func(r *SignupRequest) { r.Password = "a1"; r.ConfirmPassword = "a1" }},
		{"no digit in password", func(r *SignupRequest) { r.Password = "passwords"; r.ConfirmPassword = "passwords" }},
		{"no letter in password", func(r *SignupRequest) { r.Password = "123456789"; r.ConfirmPassword = "123456789" }},
		{"mismatched confirmation", func(r *SignupRequest) { r.ConfirmPassword = "different1" }},
		{"missing name", func(r *SignupRequest) { r.Name = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := valid
			tc.mutate(&r)

			require.Error(t, r.Validate())
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	req := require.New(t)

	req.NoError((&LoginRequest{Email: "a@b.com", Password: "x"}).Validate())
	req.Error((&LoginRequest{Email: "", Password: "x"}).Validate())
	req.Error((&LoginRequest{Email: "a@b.com", Password: ""}).Validate())
}

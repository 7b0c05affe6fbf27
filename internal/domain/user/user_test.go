package user

import "testing"

func TestSignUpRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SignUpRequest
		wantErr string
	}{
		{"valid", SignUpRequest{Email: "ada@example.com", Password: "pw", Name: "Ada"}, ""},
		{"missing email", SignUpRequest{Password: "pw", Name: "Ada"}, "email is required"},
		{"bad email", SignUpRequest{Email: "not-an-email", Password: "pw", Name: "Ada"}, "invalid email format"},
		{"missing password", SignUpRequest{Email: "ada@example.com", Name: "Ada"}, "password is required"},
		{"blank name", SignUpRequest{Email: "ada@example.com", Password: "pw", Name: "  "}, "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSignInRequestValidate(t *testing.T) {
	req := SignInRequest{Email: "ada@example.com"}
	if err := req.Validate(); err == nil || err.Error() != "password is required" {
		t.Errorf("expected password error, got %v", err)
	}

	req.Password = "secret"
	if err := req.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

package marklist

import (
	"bytes"
	"context"

	"go.opentelemetry.io/otel/codes"
)

const (
	loginUserField   = "txt_user_name"
	loginPassField   = "txt_pw"
	loginButtonField = "Button1"
	loginButtonLabel = "دخول"
)

// Credentials are opaque input, never persisted by this package.
type Credentials struct {
	Username string
	Password string
}

// Login authenticates the session and returns a cascade positioned on
// the picker page. Success is judged by the picker page rendering its
// year dropdown; anything else is ErrLoginFailed. Transport failures
// are retried at the session layer only, never here.
func Login(ctx context.Context, session *Session, endpoints Endpoints, creds Credentials) (*Cascade, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	page, err := session.Get(ctx, endpoints.LoginURL)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return nil, err
	}

	fields := ExtractFields(page.Doc)
	fields[loginUserField] = creds.Username
	fields[loginPassField] = creds.Password
	fields[loginButtonField] = loginButtonLabel

	_, err = session.PostForm(ctx, endpoints.LoginURL, fields)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return nil, err
	}

	page, err = session.Get(ctx, endpoints.PickerURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request picker page after login")
		return nil, err
	}

	if !bytes.Contains(page.Body, []byte(sessionMarker)) {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return nil, ErrLoginFailed
	}

	return NewCascade(session, endpoints, page), nil
}

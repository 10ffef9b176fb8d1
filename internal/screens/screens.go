package screens

import (
	"context"
	"errors"

	"github.com/Tiliavir/tick-tracker/internal/api"
	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/settings"
	"github.com/Tiliavir/tick-tracker/internal/timecalc"
)

// API is the remote data access used by the screens. *api.Client
// implements it.
type API interface {
	RefAPI
	EntriesByDate(ctx context.Context, date string) ([]model.Entry, error)
	CreateEntry(ctx context.Context, p model.EntryPayload) (model.Entry, error)
	UpdateEntry(ctx context.Context, id int64, p model.EntryPayload) (model.Entry, error)
	DeleteEntry(ctx context.Context, id int64) error
}

// Connector builds an API client for the given settings.
type Connector func(s settings.Settings) (API, error)

// Connect is the default Connector.
func Connect(s settings.Settings) (API, error) {
	c, err := api.New(s.BaseURL, s.APIKey)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ValidationError is user input that cannot be submitted. Title is a short
// heading and Message tells the user what to do.
type ValidationError struct {
	Title   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Title + ": " + e.Message
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// FormatHours renders fractional hours as "<H>h <MM>m", e.g. 2.5 is "2h 30m".
func FormatHours(hours float64) string {
	return timecalc.FormatHours(hours)
}

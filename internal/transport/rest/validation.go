package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"debtio/internal/finance"
	"debtio/internal/service"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DebtRequest is the JSON body for creating or updating a debt. Numeric
// fields arrive loosely typed from the frontend (numbers or numeric
// strings), so decoding goes through an untyped raw struct first.
type DebtRequest struct {
	Title        string
	Description  *string
	Principal    float64
	Rate         float64
	RatePeriod   finance.RatePeriod
	Installments int
	StartDate    time.Time
}

type rawDebtRequest struct {
	Title        string      `json:"title"`
	Description  interface{} `json:"description"`
	Principal    interface{} `json:"principal"`
	Rate         interface{} `json:"rate"`
	RatePeriod   string      `json:"rate_period"`
	Installments interface{} `json:"installments"`
	StartDate    string      `json:"start_date"`
}

// ValidateDebtRequest parses and validates the JSON body of a debt create or
// update call. Financial precondition checks (positive principal, etc.) stay
// in the schedule generator; this only rejects malformed payloads.
func ValidateDebtRequest(r *http.Request) (*service.DebtInput, error) {
	var raw rawDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	if raw.Title == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}

	principal, err := toFloat(raw.Principal)
	if err != nil {
		return nil, &ValidationError{Field: "principal", Message: "principal must be a number"}
	}

	rate, err := toFloat(raw.Rate)
	if err != nil {
		return nil, &ValidationError{Field: "rate", Message: "rate must be a number"}
	}

	installments, err := toInt(raw.Installments)
	if err != nil {
		return nil, &ValidationError{Field: "installments", Message: "installments must be an integer"}
	}

	period := finance.RatePeriod(raw.RatePeriod)
	if !finance.ValidRatePeriod(period) {
		return nil, &ValidationError{Field: "rate_period", Message: "rate_period must be one_time, monthly or annual"}
	}

	if raw.StartDate == "" {
		return nil, &ValidationError{Field: "start_date", Message: "start_date is required (YYYY-MM-DD)"}
	}
	startDate, err := finance.ParseDate(raw.StartDate)
	if err != nil {
		return nil, &ValidationError{Field: "start_date", Message: "start_date must be YYYY-MM-DD"}
	}

	description, err := toStringPtr(raw.Description)
	if err != nil {
		return nil, &ValidationError{Field: "description", Message: "description must be string or empty"}
	}

	return &service.DebtInput{
		Title:        raw.Title,
		Description:  description,
		Principal:    principal,
		Rate:         rate,
		RatePeriod:   period,
		Installments: installments,
		StartDate:    startDate,
	}, nil
}

type rawPayRequest struct {
	PaymentMethod string `json:"payment_method"`
	ReceiptKey    string `json:"receipt_key"`
}

type PayRequest struct {
	PaymentMethod string
	ReceiptKey    *string
}

func ValidatePayRequest(r *http.Request) (*PayRequest, error) {
	var raw rawPayRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	if raw.PaymentMethod == "" {
		raw.PaymentMethod = "manual"
	}

	req := &PayRequest{PaymentMethod: raw.PaymentMethod}
	if raw.ReceiptKey != "" {
		req.ReceiptKey = &raw.ReceiptKey
	}
	return req, nil
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		if t == "" {
			return 0, fmt.Errorf("empty")
		}
		return strconv.ParseFloat(t, 64)
	case nil:
		return 0, fmt.Errorf("missing")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		if t != float64(int(t)) {
			return 0, fmt.Errorf("not an integer")
		}
		return int(t), nil
	case string:
		if t == "" {
			return 0, fmt.Errorf("empty")
		}
		return strconv.Atoi(t)
	case nil:
		return 0, fmt.Errorf("missing")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toStringPtr(v interface{}) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

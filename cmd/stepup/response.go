package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"stepup/internal/models"

	"github.com/go-resty/resty/v2"
)

// checkResponse turns a transport error or an API error body into an error
// carrying the server message.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsSuccess() {
		return nil
	}

	var body models.Error
	if json.Unmarshal(resp.Body(), &body) != nil {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	codes := strings.Join(body.Error, ", ")
	switch {
	case body.Message != "" && codes != "":
		return fmt.Errorf("%s (%s)", body.Message, codes)
	case body.Message != "":
		return errors.New(body.Message)
	case codes != "":
		return errors.New(codes)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode())
}

package client

import "errors"

var (
	ErrNoAccessToken = errors.New("amocrm access token is not configured")

	ErrNotFound = errors.New("resource not found")

	ErrNoBaseURL = errors.New("base URL is not configured")
)

package auth

import (
	"strings"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Strava API root; OAuth endpoints live beside it
const DefaultBaseURL = "https://www.strava.com/api/v3"

// Scopes required for our app (Strava uses comma-separated scopes)
var Scopes = []string{
	"read,activity:read_all",
}

// Config holds the OAuth client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "http://localhost:8089/callback"
	BaseURL      string // API root, defaults to DefaultBaseURL
}

// NewOAuthConfig creates an oauth2.Config from our Config.
// The authorize and token endpoints are derived from the API root.
func NewOAuthConfig(cfg Config) *oauth2.Config {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	root := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/api/v3")

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   root + "/oauth/authorize",
			TokenURL:  root + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: cfg.RedirectURL,
		Scopes:      Scopes,
	}
}

// AuthResult contains the token and athlete info from successful auth
type AuthResult struct {
	Token     *oauth2.Token
	AthleteID int64
}

// ExtractAthleteID extracts the athlete ID from the token extras
// Strava includes athlete info in the token response
func ExtractAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}

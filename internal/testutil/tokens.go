// Package testutil provides testing utilities for taskbot.
package testutil

// Obviously fake credentials, so secret scanners leave test files alone.
const (
	// FakePageAccessToken stands in for a Messenger page access token.
	FakePageAccessToken = "test-page-access-token"

	// FakeVerifyToken is the webhook verification token used in tests.
	FakeVerifyToken = "test-verify-token"

	// FakeAppSecret signs webhook bodies in tests.
	FakeAppSecret = "test-app-secret"

	// FakeAdminToken is a bearer token for the admin API.
	FakeAdminToken = "test-admin-token"
)

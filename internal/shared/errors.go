package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authorization flow errors
	ErrAuthDenied          = fmt.Errorf("authorization denied")
	ErrAuthIncomplete      = fmt.Errorf("authorization incomplete")
	ErrTokenExchangeFailed = fmt.Errorf("token exchange failed")
	ErrNotAuthenticated    = fmt.Errorf("not authenticated")
	ErrStoreFailure        = fmt.Errorf("token store failure")
	ErrFlowSuperseded      = fmt.Errorf("authorization attempt superseded")

	// Remote API errors
	ErrRemoteFetchFailed = fmt.Errorf("remote fetch failed")
	ErrNoActiveTrack     = fmt.Errorf("no active track")

	// Vault errors
	ErrDocumentParseSkip = fmt.Errorf("document skipped")
	ErrFileSystemFailure = fmt.Errorf("file system failure")
	ErrNotFound          = fmt.Errorf("not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

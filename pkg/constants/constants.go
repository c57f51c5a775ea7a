package constants

import "time"

// Slack credential token prefixes
const (
	// BotTokenPrefix is the required prefix for Slack bot user OAuth tokens
	BotTokenPrefix = "xoxb-"
	// AppTokenPrefix is the required prefix for Slack app-level tokens
	AppTokenPrefix = "xapp-"
)

// Conversation cache defaults
const (
	// DefaultConversationCacheTTL is the default lifetime of a cached conversation entry
	DefaultConversationCacheTTL = 5 * time.Minute
	// DefaultConversationCacheTTLMS is the same default expressed in milliseconds,
	// matching the unit of the conversation_cache_ttl_ms config key
	DefaultConversationCacheTTLMS = 300000
)

// User directory defaults
const (
	// DefaultUserListPageSize is the default page size for paginated users.list calls
	DefaultUserListPageSize = 200
	// MaxUserListPageSize is the upper bound Slack accepts for users.list limit
	MaxUserListPageSize = 1000
)

// Web API defaults
const (
	// DefaultAPIBaseURL is the base URL for Slack Web API methods
	DefaultAPIBaseURL = "https://slack.com/api"
	// DefaultHTTPTimeout is the timeout for a single Web API request
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultHandshakeTimeout is the timeout for the websocket dial
	DefaultHandshakeTimeout = 10 * time.Second
)

// Token masking
const (
	// MinSecretLengthForMasking is the minimum token length to apply masking
	MinSecretLengthForMasking = 10
	// SecretMaskPrefixLength is the length of prefix to show before masking
	SecretMaskPrefixLength = 7
	// SecretMaskSuffixLength is the length of suffix to show after masking
	SecretMaskSuffixLength = 4
)

// Logging defaults
const (
	// DefaultLogMaxSize is the default maximum log file size in MB
	DefaultLogMaxSize = 100
	// DefaultLogMaxAge is the default maximum number of days to retain old logs
	DefaultLogMaxAge = 30
)

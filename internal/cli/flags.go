package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config     string `long:"config" description:"Path to config file" default:""`
	ProfileDir string `long:"profile-dir" description:"Profile directory (overrides the config file)"`
	JSON       bool   `long:"json" description:"Output in JSON format"`
	Verbose    bool   `long:"verbose" description:"Enable verbose output"`
	Version    bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand shows the schema version, event counts and projection sizes.
type StatusCommand struct {
	Metrics bool `long:"metrics" description:"Also print the engine metrics collected by this run"`

	globals *GlobalFlags
	version string
}

// VisitCommand records a visit to a URL.
type VisitCommand struct {
	URL     string `long:"url" description:"Visited URL (required)"`
	Title   string `long:"title" description:"Page title"`
	Session int64  `long:"session" description:"Session id; a one-off session is used when omitted"`
	Type    string `long:"type" description:"Visit type: link | typed | reload | restore" default:"link"`

	globals *GlobalFlags
}

// StarCommand stars or unstars a URL.
type StarCommand struct {
	URL     string `long:"url" description:"URL to star (required)"`
	Unstar  bool   `long:"unstar" description:"Record an unstar instead of a star"`
	Session int64  `long:"session" description:"Session id; a one-off session is used when omitted"`

	globals *GlobalFlags
}

// HistoryCommand lists visited pages.
type HistoryCommand struct {
	Since string `long:"since" description:"Only pages visited within duration (e.g., 7d, 24h, 2w)"`
	Limit int    `long:"limit" description:"Maximum results (default from config)"`

	globals *GlobalFlags
}

// SearchCommand runs a substring search over titles and URLs of visited pages.
type SearchCommand struct {
	Since string `long:"since" description:"Only pages visited within duration (e.g., 7d, 24h, 2w)"`
	Limit int    `long:"limit" description:"Maximum results (default from config)"`

	globals *GlobalFlags
}

// StarredCommand lists starred pages.
type StarredCommand struct {
	globals *GlobalFlags
}

// SessionStartCommand starts a browsing session.
type SessionStartCommand struct {
	Scope    int64 `long:"scope" description:"Scope identifier (e.g., a window id)"`
	Ancestor int64 `long:"ancestor" description:"Id of the session this one descends from"`

	globals *GlobalFlags
}

// SessionEndCommand ends a browsing session.
type SessionEndCommand struct {
	ID int64 `long:"id" description:"Session id (required)"`

	globals *GlobalFlags
}

// RematerializeCommand rebuilds projections from the event log.
type RematerializeCommand struct {
	globals *GlobalFlags
}

// CheckCommand compares projections with the event log.
type CheckCommand struct {
	Repair bool `long:"repair" description:"Rematerialize when the projections are out of date"`

	globals *GlobalFlags
}

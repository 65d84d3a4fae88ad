package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the bot towards Discord and feed clients.
var UserAgent = "Birthday-Bot/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName        = "Birthday Bot"
	AppID          = "com.github.fp2003.discord-birthday-bot"
	KeyringService = "com.github.fp2003.discord-birthday-bot"
	KeyringUser    = "discord-token"
	BotTokenPrefix = "Bot "
	EnvFileName    = ".env"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// The store document holds member ids and birth dates.
	FilePermUserRW fs.FileMode = 0600

	// StoreTempPattern is the os.CreateTemp pattern used for atomic rewrites.
	StoreTempPattern = ".birthdays-*.json.tmp"
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	CmdRoot   = "birthday-bot"
	CmdRun    = "run"
	CmdVer    = "version"
	CmdExport = "export"
	CmdImport = "import"
	CmdToken  = "set-token"

	FlagDebug   = "debug"
	FlagEnvFile = "env-file"
	FlagGuild   = "guild"
	FlagFormat  = "format"
	FlagFile    = "file"
	FlagURL     = "url"

	FlagDescDebug   = "Enable debug logging"
	FlagDescEnvFile = "Dotenv file loaded before reading the environment"
	FlagDescGuild   = "Discord server (guild) id"
	FlagDescFormat  = "Output format: ics or vcf"
	FlagDescFile    = "vCard file to import"
	FlagDescURL     = "vCard URL to import (e.g. a CardDAV export); basic auth from IMPORT_USER/IMPORT_PASSWORD"

	DescRoot   = "Discord bot that keeps track of server members' birthdays"
	DescRun    = "Connect to Discord and serve commands and daily announcements"
	DescVer    = "Show application version and exit"
	DescExport = "Print a server's birthdays as an iCalendar or vCard document"
	DescImport = "Import birthdays from a vCard file (card UID = member id)"
	DescToken  = "Read a Discord bot token from stdin and store it in the OS keyring"

	FormatICS = "ics"
	FormatVCF = "vcf"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
	MsgImportDone    = "imported %d birthdays, skipped %d cards\n"
	MsgTokenStored   = "token stored in the OS keyring\n"
)

// -----------------------------------------------------------------------------
// Environment & Defaults
// -----------------------------------------------------------------------------

const (
	EnvPrefix = ""

	DefaultStorePath    = "./birthdays.json"
	DefaultTimezone     = "UTC"
	DefaultAnnounceCron = "0 9 * * *"
	DefaultFeedAddr     = "" // the feed is unauthenticated and stays off unless FEED_ADDR is set
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
	DefaultLanguage     = "en"
	DefaultLeapYear     = 2000 // Leap year used to validate dates without a year (29 Feb).
	DefaultUpcomingMax  = 10
	MinBirthYear        = 1900

	LogFormatJSON = "json"
	LogFormatText = "text"
)

// SupportedLanguages lists the locales shipped in internal/i18n/locales.
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Slash Commands
// -----------------------------------------------------------------------------

const (
	CmdSetBirthday    = "setbirthday"
	CmdBirthday       = "birthday"
	CmdBirthdays      = "birthdays"
	CmdRemoveBirthday = "removebirthday"
	CmdBirthdayChan   = "birthdaychannel"

	OptMonth   = "month"
	OptDay     = "day"
	OptYear    = "year"
	OptUser    = "user"
	OptChannel = "channel"

	DescSetBirthday    = "Set your birthday"
	DescBirthday       = "Show someone's birthday"
	DescBirthdays      = "List upcoming birthdays"
	DescRemoveBirthday = "Remove your birthday"
	DescBirthdayChan   = "Set the channel for birthday announcements"
	DescOptMonth       = "Month (1-12)"
	DescOptDay         = "Day (1-31)"
	DescOptYear        = "Year of birth (optional)"
	DescOptUser        = "Member to look up (defaults to you)"
	DescOptChannel     = "Channel that receives announcements"

	MinMonth = 1
	MaxMonth = 12
	MinDay   = 1
	MaxDay   = 31
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyErrInvalidDate   = "err_invalid_date"
	TKeyErrYearRange     = "err_year_range"   // Requires Min, Max
	TKeyErrGeneric       = "err_generic"      // Requires Incident
	TKeyErrAdminOnly     = "err_admin_only"   // No data
	TKeyErrGuildOnly     = "err_guild_only"   // No data
	TKeySetDone          = "set_done"         // Requires Date
	TKeySetDoneAge       = "set_done_age"     // Requires Date, Age
	TKeyShowSelf         = "show_self"        // Requires Date
	TKeyShowSelfAge      = "show_self_age"    // Requires Date, Age
	TKeyShowOther        = "show_other"       // Requires Name, Date
	TKeyShowOtherAge     = "show_other_age"   // Requires Name, Date, Age
	TKeyNotSetSelf       = "not_set_self"     // No data
	TKeyNotSetOther      = "not_set_other"    // Requires Name
	TKeyListTitle        = "list_title"       // No data
	TKeyListEmpty        = "list_empty"       // No data
	TKeyListLine         = "list_line"        // Requires Name, Date, When
	TKeyListLineAge      = "list_line_age"    // Requires Name, Date, Age, When
	TKeyWhenToday        = "when_today"       // No data
	TKeyWhenTomorrow     = "when_tomorrow"    // No data
	TKeyWhenDays         = "when_days"        // Requires Days
	TKeyRemoveDone       = "remove_done"      // No data
	TKeyRemoveNothing    = "remove_nothing"   // No data
	TKeyChannelDone      = "channel_done"     // Requires Channel
	TKeyAnnounce         = "announce"         // Requires Mention, Name
	TKeyAnnounceAge      = "announce_age"     // Requires Mention, Name, Age
	TKeyFeedSummary      = "feed_summary"     // Requires Name
	TKeyFeedSummaryAge   = "feed_summary_age" // Requires Name, Age
	TKeyFeedSummaryBirth = "feed_summary_birth"
)

// -----------------------------------------------------------------------------
// Discord Formatting
// -----------------------------------------------------------------------------

const (
	FormatUserMention    = "<@%s>"
	FormatChannelMention = "<#%s>"
	ListSeparator        = "\n"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Birthday Bot//Feed//EN"
	ICalCalName   = "Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "birthday-bot"

	// iCal/vCard Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object served when a server has no birthdays.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	FormatUID = "%s-%d@%s"
)

// -----------------------------------------------------------------------------
// Data Formats
// -----------------------------------------------------------------------------

const (
	// Date layouts used for parsing vCard BDAY fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// FormatDate* render a birthday for display ("25 December, 2000").
	FormatDateShort = "%d %s"
	FormatDateLong  = "%d %s, %d"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	MaxHTTPResponseSize = 16 * 1024 * 1024 // 16MB of vCards is far beyond any server roster
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	LookupTimeout       = 10 * time.Second
	ReplyBudget         = 2 * time.Second // Discord drops interactions not answered within 3s
	AllowedMethods      = "GET, HEAD"
	ChannelBufferSize   = 1
	NetworkTCP          = "tcp"

	RouteHealthz  = "GET /healthz"
	RouteCalendar = "/guilds/{guild}/birthdays.ics"
	RouteContacts = "/guilds/{guild}/birthdays.vcf"
	PathGuild     = "guild"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType  = "Content-Type"
	HeaderCacheControl = "Cache-Control"
	HeaderETag         = "ETag"
	HeaderAllow        = "Allow"
	HeaderXContentType = "X-Content-Type-Options"
	HeaderIfNoneMatch  = "If-None-Match"
	HeaderUserAgent    = "User-Agent"
	HeaderLastModified = "Last-Modified"
	HeaderIfModSince   = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeVCard           = "text/vcard; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrTokenMissing     = "configuration error: DISCORD_TOKEN is not set and no keyring entry was found"
	ErrEnvLoad          = "configuration error: cannot read environment"
	ErrEnvFile          = "configuration error: cannot read dotenv file"
	ErrTimezone         = "configuration error: unknown timezone"
	ErrCronSpec         = "configuration error: invalid announcement schedule"
	ErrKeyring          = "keyring lookup failed"
	ErrStoreRead        = "failed to read birthday store"
	ErrStoreParse       = "failed to parse birthday store"
	ErrStoreWrite       = "failed to persist birthday store, changes only held in memory"
	ErrStoreMissing     = "birthday store not found, starting empty"
	ErrSessionCreate    = "failed to create Discord session"
	ErrSessionOpen      = "failed to open Discord gateway"
	ErrCommandRegister  = "failed to register slash commands"
	ErrCommandParse     = "failed to parse slash command"
	ErrCommandTable     = "command table mismatch"
	ErrHandlerMissing   = "no handler for published command"
	ErrHandlerOrphan    = "handler has no published command"
	ErrHandlerFailed    = "command handler failed"
	ErrHandlerPanic     = "command handler panicked"
	ErrRespond          = "failed to respond to interaction"
	ErrChannelResolve   = "announcement channel unavailable"
	ErrMemberResolve    = "member lookup failed"
	ErrAnnounceSend     = "failed to send birthday announcement"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrVCardEncode      = "failed to encode vCard data"
	ErrVCardParse       = "failed to parse vCard stream"
	ErrDateParse        = "unable to parse date"
	ErrInvalidDate      = "invalid calendar date"
	ErrYearOutOfRange   = "birth year out of range"
	ErrUnknownFormat    = "unknown export format"
	ErrUnknownCommand   = "unknown command"
	ErrGuildRequired    = "a server id is required"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrOptionType       = "unexpected option type"
	ErrNotInGuild       = "command used outside of a server"
	ErrAnnounceSchedule = "failed to schedule daily announcements"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrRemoteRequest    = "failed to create request"
	ErrRemoteNetwork    = "network error during download"
	ErrRemoteStatus     = "remote server answered"
	ErrImportSource     = "exactly one of --file or --url is required"
	ErrTokenEmpty       = "no token read from stdin"
	ErrLogLevel         = "configuration error: unknown log level"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
	HTTPMsgNotFound     = "Not Found"
	HTTPMsgHealthy      = "ok"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackSummary      = "Birthday: %s"
	FallbackSummaryAge   = "Birthday: %s (%d)"
	FallbackSummaryBirth = "Birthday: %s (birth)"

	MsgAppStarting     = "Starting application"
	MsgAppStop         = "Application stopped gracefully"
	MsgCtxCancel       = "Context cancelled, shutting down"
	MsgStoreLoaded     = "Birthday store loaded"
	MsgStoreSaved      = "Birthday store saved"
	MsgGatewayReady    = "Connected to Discord"
	MsgCommandsSynced  = "Slash commands registered"
	MsgCommandHandled  = "Command handled"
	MsgCommandRejected = "Command rejected"
	MsgAnnounceStart   = "Daily announcement pass started"
	MsgAnnounceDone    = "Daily announcement pass finished"
	MsgAnnounceSent    = "Birthday announcement sent"
	MsgAnnounceSkip    = "Skipping server announcement"
	MsgSchedulerStart  = "Announcement scheduler started"
	MsgSchedulerStop   = "Announcement scheduler stopped"
	MsgServerListen    = "HTTP feed server listening"
	MsgServerStop      = "Shutting down HTTP feed server..."
	MsgServerDisabled  = "HTTP feed server disabled"
	MsgCacheUpdated    = "Feed cache updated"
	MsgSkippedCard     = "Skipping malformed vCard"
	MsgSkippedDate     = "Skipping invalid date format"
	MsgLocaleSkip      = "Skipping non-locale file"
	MsgLocaleBadName   = "Skipping malformed locale filename"
	MsgLocaleLoaded    = "Locale loaded successfully"
	MsgTransMissing    = "Missing translation key"
	MsgTokenKeyring    = "Discord token read from OS keyring"
	MsgEnvFileSkip     = "No dotenv file found"
	MsgFetchStart      = "Downloading remote contacts"
	MsgFetchStatus     = "Remote server returned an error status"
	MsgLookupBudget    = "Member lookups exceeded the reply budget, using mentions"
	MsgFeedUnavailable = "HTTP feed server unavailable, bot keeps running"
	MsgSkippedRecord   = "Skipping invalid stored birthday"

	ReasonNoBirthdays = "no birthdays today"
	ReasonNoChannel   = "no announcement channel"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyPath      = "path"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyAddr      = "addr"
	LogKeyGuild     = "guild_id"
	LogKeyMember    = "member_id"
	LogKeyChannel   = "channel_id"
	LogKeyCommand   = "command"
	LogKeyIncident  = "incident_id"
	LogKeyReason    = "reason"
	LogKeyCount     = "count"
	LogKeyGuilds    = "guilds"
	LogKeySent      = "sent"
	LogKeyFailed    = "failed"
	LogKeyUser      = "user"
	LogKeySchedule  = "schedule"
	LogKeyTimezone  = "timezone"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyValue     = "value"
	LogKeyDuration  = "duration_ms"
	LogKeyPanic     = "panic"
	LogKeyScope     = "scope"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyDate      = "date"
	LogKeyNext      = "next_run"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain      = "main"
	CompApp       = "app"
	CompConfig    = "config"
	CompStore     = "store"
	CompBot       = "bot"
	CompDiscord   = "discord"
	CompAnnouncer = "announcer"
	CompScheduler = "scheduler"
	CompServer    = "server"
	CompEngine    = "engine"
	CompI18n      = "i18n"
	CompFetcher   = "fetcher"
)

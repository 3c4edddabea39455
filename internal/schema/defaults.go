package schema

import (
	"github.com/confsync/confsync/internal/logging"
	"github.com/confsync/confsync/internal/storage"
)

// RegisterDefaults registers all built-in settings.
//
// User-facing settings live in the replicated area so they follow the
// user across devices; diagnostic settings live in the local area both
// because they are device-specific and because they change too often
// for a size-constrained store.
func (r *Registry) RegisterDefaults() {
	// Replicated user settings
	r.MustRegister(Setting{
		Key:         "uiLanguage",
		Area:        storage.AreaReplicated,
		Type:        TypeString,
		Default:     "en",
		Description: "Language of the popup and options UI",
		Tags:        []string{"ui", "language"},
	})

	r.MustRegister(Setting{
		Key:         "subtitlesEnabled",
		Area:        storage.AreaReplicated,
		Type:        TypeBool,
		Default:     true,
		Description: "Show translated subtitles on supported players",
		Tags:        []string{"subtitles"},
	})

	r.MustRegister(Setting{
		Key:         "targetLanguage",
		Area:        storage.AreaReplicated,
		Type:        TypeString,
		Default:     "en",
		Description: "Language subtitles are translated into",
		Tags:        []string{"subtitles", "language"},
	})

	r.MustRegister(Setting{
		Key:         "subtitleFontSize",
		Area:        storage.AreaReplicated,
		Type:        TypeInt,
		Default:     16,
		Description: "Subtitle font size in pixels",
		Tags:        []string{"subtitles", "display"},
	})

	r.MustRegister(Setting{
		Key:         "subtitlePosition",
		Area:        storage.AreaReplicated,
		Type:        TypeEnum,
		Default:     "bottom",
		Description: "Where subtitles are rendered on the player",
		Enum:        []any{"top", "bottom"},
		Tags:        []string{"subtitles", "display"},
	})

	r.MustRegister(Setting{
		Key:         "subtitleBackgroundOpacity",
		Area:        storage.AreaReplicated,
		Type:        TypeFloat,
		Default:     0.75,
		Description: "Opacity of the subtitle background box",
		Tags:        []string{"subtitles", "display"},
	})

	r.MustRegister(Setting{
		Key:         "translationProvider",
		Area:        storage.AreaReplicated,
		Type:        TypeEnum,
		Default:     "google",
		Description: "Translation provider used for subtitle text",
		Enum:        []any{"google", "deepl", "openai"},
		Tags:        []string{"translation"},
	})

	r.MustRegister(Setting{
		Key:         "aiContextEnabled",
		Area:        storage.AreaReplicated,
		Type:        TypeBool,
		Default:     false,
		Description: "Use AI context analysis to improve translations",
		Tags:        []string{"translation", "ai"},
	})

	// Local diagnostic settings
	r.MustRegister(Setting{
		Key:         "debugMode",
		Area:        storage.AreaLocal,
		Type:        TypeBool,
		Default:     false,
		Description: "Enable verbose diagnostics in the UI",
		Tags:        []string{"diagnostics"},
	})

	r.MustRegister(Setting{
		Key:         "loggingLevel",
		Area:        storage.AreaLocal,
		Type:        TypeInt,
		Default:     int(logging.LevelInfo),
		Description: "Logging verbosity applied in every context",
		Broadcast:   true,
		Tags:        []string{"diagnostics", "logging"},
	})
}

package model

type DelayStrategy string

const (
	DelayFast   DelayStrategy = "fast"
	DelayNormal DelayStrategy = "normal"
	DelaySlow   DelayStrategy = "slow"
	DelayCustom DelayStrategy = "custom"
)

type Settings struct {
	DelayStrategy DelayStrategy `json:"delayStrategy"`
	DelayMin      int           `json:"delayMin"` // seconds, custom strategy only
	DelayMax      int           `json:"delayMax"` // seconds, custom strategy only
	AutoStart     bool          `json:"autoStart"`
	Notifications bool          `json:"notifications"`
	HistoryLimit  int           `json:"historyLimit"`
}

func DefaultSettings() Settings {
	return Settings{
		DelayStrategy: DelayNormal,
		DelayMin:      5,
		DelayMax:      15,
		AutoStart:     false,
		Notifications: true,
		HistoryLimit:  500,
	}
}

type EmailSettings struct {
	Enabled  bool   `json:"enabled"`
	Email    string `json:"email"`
	AuthCode string `json:"authCode,omitempty"`
}

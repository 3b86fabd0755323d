package middleware

// ScanEventKind enumerates scan telemetry delivered by the middleware.
type ScanEventKind int

const (
	ScanFrequency ScanEventKind = iota
	ScanServiceTV
	ScanServiceRadio
	ScanServiceData
	ScanProgress
	ScanSignalLevel
	ScanSignalQuality
	ScanSignalBER
	ScanNetworkChanged
	ScanNoServiceSpace
	ScanFinished
	ScanDatabaseUpdated
)

func (k ScanEventKind) String() string {
	switch k {
	case ScanFrequency:
		return "frequency"
	case ScanServiceTV:
		return "service_tv"
	case ScanServiceRadio:
		return "service_radio"
	case ScanServiceData:
		return "service_data"
	case ScanProgress:
		return "progress"
	case ScanSignalLevel:
		return "signal_level"
	case ScanSignalQuality:
		return "signal_quality"
	case ScanSignalBER:
		return "signal_ber"
	case ScanNetworkChanged:
		return "network_changed"
	case ScanNoServiceSpace:
		return "no_service_space"
	case ScanFinished:
		return "finished"
	case ScanDatabaseUpdated:
		return "database_updated"
	default:
		return "unknown"
	}
}

// ScanEvent is one telemetry callback. Value carries the numeric payload
// (progress percent, frequency, signal metric); Text carries service names.
type ScanEvent struct {
	Kind    ScanEventKind
	RouteID int
	Value   int
	Text    string
}

// EpgNotificationKind enumerates EPG change callbacks.
type EpgNotificationKind int

const (
	EpgScheduleAcquired EpgNotificationKind = iota
	EpgPresentFollowingAcquired
	EpgTimeDateChanged
)

func (k EpgNotificationKind) String() string {
	switch k {
	case EpgScheduleAcquired:
		return "schedule_acquired"
	case EpgPresentFollowingAcquired:
		return "present_following_acquired"
	case EpgTimeDateChanged:
		return "time_date_changed"
	default:
		return "unknown"
	}
}

// EpgNotification is delivered when the stream carries new guide data.
type EpgNotification struct {
	Kind      EpgNotificationKind
	Frequency int
}

// ScanListener receives scan telemetry on the middleware dispatch context.
type ScanListener func(ScanEvent)

// EpgListener receives EPG change notifications on the middleware dispatch context.
type EpgListener func(EpgNotification)

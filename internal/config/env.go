// Package config handles environment-based configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// TSDBConfig holds InfluxDB connection and field-name settings for one
// query class (metric, optic, desc, counter all share connection info but
// may target different measurements).
type TSDBConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Org       string
	AuthToken string
	Database  string

	MetricMeasurement  string
	OpticMeasurement   string
	DescMeasurement    string
	CounterMeasurement string

	FieldNode        string
	FieldInterface   string
	FieldInputRate   string
	FieldOutputRate  string
	FieldBandwidth   string
	FieldOpticRx     string
	FieldOpticTx     string
	FieldOpticLbc    string
	FieldDescription string
	FieldLineState   string
	FieldCRC         string
	FieldInputError  string
	FieldPacketsRx   string
	FieldOutputDrop  string

	HistoricShortIntervalSeconds int
	HistoricLongIntervalSeconds  int
}

// SNMPConfig holds host list, community, poll interval, and the OID table
// for the SNMP backend.
type SNMPConfig struct {
	Enabled      bool
	Hosts        []string
	Community    string
	PollInterval time.Duration

	NodeOID         string
	IfNameOID       string
	IfDescOID       string
	IfHighSpeedOID  string
	IfOperStatusOID string
	IfInOctetsOID   string
	IfOutOctetsOID  string
	OpticNameOID    string
	OpticSensorOID  string

	OpticRxSensorName  string
	OpticTxSensorName  string
	OpticLbcSensorName string
}

// TopologyConfig holds the description-parser and matcher heuristics.
type TopologyConfig struct {
	DescriptionExcludeList       []string
	NodeExcludeList              []string
	NodeSeparator                string
	NodeNumSegments              int
	RemoteIncludeList            []string
	DescriptionPrefixExcludeList []string
}

// Config is the top-level, validated, process configuration. Loaded once
// at startup via LoadEnvConfig and passed explicitly to every component
// that needs it — nothing reads os.Getenv after startup.
type Config struct {
	ListenAddress string
	LogLevel      string
	AuthTokens    []string

	// WeakAuthTokenConfigured is set when at least one configured auth
	// token scores below the zxcvbn strength threshold. Surfaced as a
	// startup warning, not a validation failure, since an operator may
	// be running a local/dev deployment where a weak static token is
	// intentional.
	WeakAuthTokenConfigured bool

	APIMaxBodyBytes int

	SchedulerWarmRefreshInterval  time.Duration
	VerificationErrorCronSchedule string

	CacheMaxKeys int

	MapsCatalogPath string

	Topology TopologyConfig
	TSDB     TSDBConfig
	SNMP     SNMPConfig
}

// LoadEnvConfig reads environment variables and returns a validated
// Config. Returns an error if any value is invalid; all violations are
// reported together rather than stopping at the first.
func LoadEnvConfig() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.ListenAddress = strings.TrimSpace(envStr("WEATHERMAP_LISTEN_ADDRESS", "0.0.0.0:8080"))
	cfg.LogLevel = envStr("WEATHERMAP_LOG_LEVEL", "info")
	cfg.AuthTokens = envStringSlice("WEATHERMAP_AUTH_TOKENS", []string{}, &errs)
	cfg.APIMaxBodyBytes = envInt("WEATHERMAP_API_MAX_BODY_BYTES", 1<<20, &errs)
	cfg.SchedulerWarmRefreshInterval = envDuration("WEATHERMAP_WARM_REFRESH_INTERVAL", 5*time.Minute, &errs)
	cfg.VerificationErrorCronSchedule = envStr("WEATHERMAP_VERIFICATION_LOG_CRON", "0 3 * * *")
	cfg.CacheMaxKeys = envInt("WEATHERMAP_CACHE_MAX_KEYS", 4096, &errs)
	cfg.MapsCatalogPath = envStr("WEATHERMAP_MAPS_CATALOG_PATH", "")

	cfg.Topology = TopologyConfig{
		DescriptionExcludeList: envStringSlice("WEATHERMAP_DESCRIPTION_EXCLUDELIST", []string{"-rt-", "-sw-"}, &errs),
		NodeExcludeList:        envStringSlice("WEATHERMAP_NODE_EXCLUDELIST", []string{"UEN"}, &errs),
		NodeSeparator:          envStr("WEATHERMAP_NODE_SEPARATOR", "-"),
		NodeNumSegments:        envInt("WEATHERMAP_NODE_NUM_SEGMENTS", 3, &errs),
		RemoteIncludeList: envStringSlice("WEATHERMAP_REMOTE_INCLUDELIST", []string{
			"ALLW", "ISP", "P2P", "P2M", "DARK", "DC", "DTS", "EMRY", "CENT",
			"CMST", "CMCST", "CNMS", "SCTL", "CBRS", "MNTI", "RADIO", "STRA", "VRF",
		}, &errs),
		DescriptionPrefixExcludeList: envStringSlice("WEATHERMAP_DESCRIPTION_PREFIX_EXCLUDELIST", []string{"BRDG", "PWL"}, &errs),
	}

	cfg.TSDB = loadTSDBConfig(&errs)
	cfg.SNMP = loadSNMPConfig(&errs)

	// --- Validation ---
	validatePositive("WEATHERMAP_API_MAX_BODY_BYTES", cfg.APIMaxBodyBytes, &errs)
	validatePositive("WEATHERMAP_CACHE_MAX_KEYS", cfg.CacheMaxKeys, &errs)
	if cfg.ListenAddress == "" {
		errs = append(errs, "WEATHERMAP_LISTEN_ADDRESS must not be empty")
	}
	if cfg.Topology.NodeNumSegments <= 0 {
		errs = append(errs, "WEATHERMAP_NODE_NUM_SEGMENTS must be positive")
	}
	if cfg.SchedulerWarmRefreshInterval <= 0 {
		errs = append(errs, "WEATHERMAP_WARM_REFRESH_INTERVAL must be positive")
	}
	if !cfg.TSDB.Enabled && !cfg.SNMP.Enabled {
		errs = append(errs, "at least one of the TSDB or SNMP backends must be enabled (set WEATHERMAP_TSDB_HOST or WEATHERMAP_SNMP_HOSTS)")
	}
	for _, tok := range cfg.AuthTokens {
		if IsWeakToken(tok) {
			cfg.WeakAuthTokenConfigured = true
			break
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return cfg, nil
}

func loadTSDBConfig(errs *[]string) TSDBConfig {
	host := envStr("WEATHERMAP_TSDB_HOST", "")
	c := TSDBConfig{
		Enabled:   host != "",
		Host:      host,
		Port:      envInt("WEATHERMAP_TSDB_PORT", 8086, errs),
		Org:       envStr("WEATHERMAP_TSDB_ORG", ""),
		AuthToken: envStr("WEATHERMAP_TSDB_AUTH_TOKEN", ""),
		Database:  envStr("WEATHERMAP_TSDB_DATABASE", "telemetry"),

		MetricMeasurement:  envStr("WEATHERMAP_TSDB_METRIC_MEASUREMENT", "interface_counters"),
		OpticMeasurement:   envStr("WEATHERMAP_TSDB_OPTIC_MEASUREMENT", "optics"),
		DescMeasurement:    envStr("WEATHERMAP_TSDB_DESC_MEASUREMENT", "interfaces"),
		CounterMeasurement: envStr("WEATHERMAP_TSDB_COUNTER_MEASUREMENT", "interface_counters"),

		FieldNode:        envStr("WEATHERMAP_TSDB_FIELD_NODE", "source"),
		FieldInterface:   envStr("WEATHERMAP_TSDB_FIELD_INTERFACE", "interface_name"),
		FieldInputRate:   envStr("WEATHERMAP_TSDB_FIELD_INPUT_RATE", "input_data_rate"),
		FieldOutputRate:  envStr("WEATHERMAP_TSDB_FIELD_OUTPUT_RATE", "output_data_rate"),
		FieldBandwidth:   envStr("WEATHERMAP_TSDB_FIELD_BANDWIDTH", "bandwidth"),
		FieldOpticRx:     envStr("WEATHERMAP_TSDB_FIELD_OPTIC_RX", "receive_power"),
		FieldOpticTx:     envStr("WEATHERMAP_TSDB_FIELD_OPTIC_TX", "transmit_power"),
		FieldOpticLbc:    envStr("WEATHERMAP_TSDB_FIELD_OPTIC_LBC", "laser_bias_current_milli_amps"),
		FieldDescription: envStr("WEATHERMAP_TSDB_FIELD_DESCRIPTION", "description"),
		FieldLineState:   envStr("WEATHERMAP_TSDB_FIELD_LINE_STATE", "line_state"),
		FieldCRC:         envStr("WEATHERMAP_TSDB_FIELD_CRC", "crc_errors"),
		FieldInputError:  envStr("WEATHERMAP_TSDB_FIELD_INPUT_ERROR", "input_errors"),
		FieldPacketsRx:   envStr("WEATHERMAP_TSDB_FIELD_PACKETS_RX", "packets_received"),
		FieldOutputDrop:  envStr("WEATHERMAP_TSDB_FIELD_OUTPUT_DROP", "output_drops"),

		HistoricShortIntervalSeconds: envInt("WEATHERMAP_TSDB_HISTORIC_SHORT_INTERVAL", 60, errs),
		HistoricLongIntervalSeconds:  envInt("WEATHERMAP_TSDB_HISTORIC_LONG_INTERVAL", 900, errs),
	}
	if c.Enabled {
		validatePort("WEATHERMAP_TSDB_PORT", c.Port, errs)
		validatePositive("WEATHERMAP_TSDB_HISTORIC_SHORT_INTERVAL", c.HistoricShortIntervalSeconds, errs)
		validatePositive("WEATHERMAP_TSDB_HISTORIC_LONG_INTERVAL", c.HistoricLongIntervalSeconds, errs)
	}
	return c
}

func loadSNMPConfig(errs *[]string) SNMPConfig {
	hosts := envStringSlice("WEATHERMAP_SNMP_HOSTS", []string{}, errs)
	c := SNMPConfig{
		Enabled:      len(hosts) > 0,
		Hosts:        hosts,
		Community:    envStr("WEATHERMAP_SNMP_COMMUNITY", "public"),
		PollInterval: envDuration("WEATHERMAP_SNMP_POLL_INTERVAL", 30*time.Second, errs),

		NodeOID:         envStr("WEATHERMAP_SNMP_NODE_OID", "1.3.6.1.2.1.1.5.0"),
		IfNameOID:       envStr("WEATHERMAP_SNMP_IF_NAME_OID", "1.3.6.1.2.1.31.1.1.1.1"),
		IfDescOID:       envStr("WEATHERMAP_SNMP_IF_DESC_OID", "1.3.6.1.2.1.31.1.1.1.18"),
		IfHighSpeedOID:  envStr("WEATHERMAP_SNMP_IF_HIGH_SPEED_OID", "1.3.6.1.2.1.31.1.1.1.15"),
		IfOperStatusOID: envStr("WEATHERMAP_SNMP_IF_OPER_STATUS_OID", "1.3.6.1.2.1.2.2.1.8"),
		IfInOctetsOID:   envStr("WEATHERMAP_SNMP_IF_IN_OCTETS_OID", "1.3.6.1.2.1.31.1.1.1.6"),
		IfOutOctetsOID:  envStr("WEATHERMAP_SNMP_IF_OUT_OCTETS_OID", "1.3.6.1.2.1.31.1.1.1.10"),
		OpticNameOID:    envStr("WEATHERMAP_SNMP_OPTIC_NAME_OID", "1.3.6.1.2.1.47.1.1.1.1.2"),
		OpticSensorOID:  envStr("WEATHERMAP_SNMP_OPTIC_SENSOR_OID", "1.3.6.1.4.1.9.9.91.1.1.1.1.4"),

		OpticRxSensorName:  envStr("WEATHERMAP_SNMP_OPTIC_RX_SENSOR_NAME", "Receive Power Sensor"),
		OpticTxSensorName:  envStr("WEATHERMAP_SNMP_OPTIC_TX_SENSOR_NAME", "Transmit Power Sensor"),
		OpticLbcSensorName: envStr("WEATHERMAP_SNMP_OPTIC_LBC_SENSOR_NAME", "Bias Current Sensor"),
	}
	if c.Enabled && c.PollInterval < time.Second {
		*errs = append(*errs, "WEATHERMAP_SNMP_POLL_INTERVAL must be at least 1s")
	}
	return c
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envDuration(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return defaultVal
	}
	return d
}

func envStringSlice(key string, defaultVal []string, errs *[]string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if strings.HasPrefix(strings.TrimSpace(v), "[") {
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			*errs = append(*errs, fmt.Sprintf("%s: invalid JSON string array %q", key, v))
			return defaultVal
		}
		return out
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}

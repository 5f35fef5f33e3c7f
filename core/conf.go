package core

type Conf struct {
	Version                   string `long:"version" description:"version of edge server" env:"QIQB_ROE_VERSION"`
	DevMode                   bool   `long:"dev-mode" description:"run in dev mode" env:"QIQB_ROE_DEV_MODE"`
	DisableStdoutLog          bool   `long:"disable-stdout-log" description:"do not log in standard output" env:"QIQB_ROE_DISABLE_STDOUT_LOG"`
	EnableFileLog             bool   `long:"enable-file-log" description:"enable log in file" env:"QIQB_ROE_ENABLE_FILE_LOG"`
	LogDir                    string `long:"log-dir" description:"rotating log file dir" default:"./shares/logs" env:"QIQB_ROE_LOG_DIR"`
	LogLevel                  string `long:"log-level" description:"log level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" env:"QIQB_ROE_LOG_LEVEL"`
	LogRotationMaxDays        int    `long:"log-rotation-max-days" description:"max days of log rotation" default:"7" env:"QIQB_ROE_LOG_ROTATION_MAX_DAYS"`
	UseDummyDevice            bool   `long:"enable-dummy-device" description:"use dummy device for tests and disable device settings" env:"QIQB_ROE_USE_DUMMY_DEVICE"`
	DeviceSettingPath         string `long:"device-setting-path" description:"device setting file path" default:"./device_setting.toml" env:"QIQB_ROE_DEVICE_SETTING_PATH"`
	QueueMaxSize              int    `long:"queue-max-size" description:"queue max size" default:"100" env:"QIQB_ROE_QUEUE_MAX_SIZE"`
	QueueRefillThreshold      int    `long:"queue-refill-threshold" description:"queue refill threshold" default:"10" env:"QIQB_ROE_QUEUE_REFILL_THRESHOLD"`
	MaxCalibrationQubits      int    `long:"max-calibration-qubits" description:"max size of a correlated readout qubit subset" default:"4" env:"QIQB_ROE_MAX_CALIBRATION_QUBITS"`
	ServiceDBEndpoint         string `long:"service-db-endpoint" description:"Service DB Endpoint" default:"localhost" env:"QIQB_ROE_SERVICE_DB_ENDPOINT"`
	ServiceDBAPIKey           string `long:"service-db-api-key" description:"Service DB API Key" default:"DefaultApiKey" env:"QIQB_ROE_SERVICE_DB_API_KEY"`
	DisableStartDevicePolling bool   `long:"disable-start-device-polling" description:"disable start device polling" env:"QIQB_ROE_DISABLE_START_DEVICE_POLLING"`
	SettingPath               string `long:"setting-path" description:"setting file path" default:"./setting/setting.toml" env:"QIQB_ROE_SETTING_PATH"`
}

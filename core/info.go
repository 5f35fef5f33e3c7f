package core

type NonSecretConf struct {
	DevMode                   bool
	DisableStdoutLog          bool
	EnableFileLog             bool
	LogDir                    string
	LogLevel                  string
	LogRotationMaxDays        int
	UseDummyDevice            bool
	DeviceSettingPath         string
	QueueMaxSize              int
	QueueRefillThreshold      int
	MaxCalibrationQubits      int
	ServiceDBEndpoint         string
	DisableStartDevicePolling bool
}

type Info struct {
	Conf *NonSecretConf
}

var CurrentInfo *Info

func SetInfo(c *Conf) {
	conf := &NonSecretConf{
		DevMode:                   c.DevMode,
		DisableStdoutLog:          c.DisableStdoutLog,
		EnableFileLog:             c.EnableFileLog,
		LogDir:                    c.LogDir,
		LogLevel:                  c.LogLevel,
		LogRotationMaxDays:        c.LogRotationMaxDays,
		UseDummyDevice:            c.UseDummyDevice,
		DeviceSettingPath:         c.DeviceSettingPath,
		QueueMaxSize:              c.QueueMaxSize,
		QueueRefillThreshold:      c.QueueRefillThreshold,
		MaxCalibrationQubits:      c.MaxCalibrationQubits,
		ServiceDBEndpoint:         c.ServiceDBEndpoint,
		DisableStartDevicePolling: c.DisableStartDevicePolling,
	}

	CurrentInfo = &Info{
		Conf: conf,
	}
}

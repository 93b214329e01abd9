// Command-line options and logging used by the adbwrapper command.
package cli

import (
	"fmt"
	"io"

	"github.com/alecthomas/kingpin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultLogLevel = logrus.WarnLevel

	// Rotation limits for --log-file.
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

type Config struct {
	AdbPath     string
	Serial      string
	USB         bool
	Local       bool
	TransportID int
	LogLevel    string
	Verbose     bool
	LogFile     string
}

const (
	AdbPathFlag     = "adb"
	SerialFlag      = "serial"
	USBFlag         = "usb"
	LocalFlag       = "local"
	TransportIDFlag = "transport-id"
	LogLevelFlag    = "log"
	VerboseFlag     = "verbose"
	LogFileFlag     = "log-file"
)

func registerFlags(app *kingpin.Application, config *Config) {
	app.Flag(AdbPathFlag, "Path to the adb executable.").
		Envar("ADB_PATH").
		Default("adb").
		StringVar(&config.AdbPath)
	app.Flag(SerialFlag, "Use device with given serial.").
		Short('s').
		Envar("ANDROID_SERIAL").
		StringVar(&config.Serial)
	app.Flag(USBFlag, "Use USB device.").
		Short('d').
		BoolVar(&config.USB)
	app.Flag(LocalFlag, "Use TCP/IP device.").
		Short('e').
		BoolVar(&config.Local)
	app.Flag(TransportIDFlag, "Use device with given transport id.").
		Short('t').
		IntVar(&config.TransportID)

	logLevels := []string{
		logrus.PanicLevel.String(),
		logrus.FatalLevel.String(),
		logrus.ErrorLevel.String(),
		logrus.WarnLevel.String(),
		logrus.InfoLevel.String(),
		logrus.DebugLevel.String(),
	}
	app.Flag(LogLevelFlag, fmt.Sprintf("Detail of logs to show. Options are: %v", logLevels)).
		Default(DefaultLogLevel.String()).
		EnumVar(&config.LogLevel, logLevels...)
	app.Flag(VerboseFlag, "Alias for --log=debug.").
		Short('v').
		BoolVar(&config.Verbose)
	app.Flag(LogFileFlag, "Write logs to this file instead of stderr. The file is rotated.").
		PlaceHolder("/var/log/adbwrapper.log").
		StringVar(&config.LogFile)
}

// createLogger builds the logger described by the config. Logs go to
// stderr unless a log file is configured.
func (c *Config) createLogger(stderr io.Writer) *logrus.Logger {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = DefaultLogLevel
	}
	if c.Verbose {
		level = logrus.DebugLevel
	}

	log := logrus.New()
	log.Level = level
	log.Out = stderr
	if c.LogFile != "" {
		log.Out = &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAgeDays,
		}
		log.Formatter = new(logrus.JSONFormatter)
	}
	return log
}

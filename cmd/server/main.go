package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/syncroom/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 25,
	}
	historyLimit = configVar[int]{
		envKey:       "SERVER_HISTORY_LIMIT",
		flagKey:      "history-limit",
		defaultValue: 50,
	}
	roomIdleTimeout = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_IDLE_TIMEOUT",
		flagKey:      "room-idle-timeout",
		defaultValue: 24 * time.Hour,
	}
	sweepInterval = configVar[time.Duration]{
		envKey:       "SERVER_SWEEP_INTERVAL",
		flagKey:      "sweep-interval",
		defaultValue: 10 * time.Minute,
	}
	syncTolerance = configVar[float64]{
		envKey:       "SERVER_SYNC_TOLERANCE",
		flagKey:      "sync-tolerance",
		defaultValue: 1.5,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of participants in a room")
	pflag.Int(historyLimit.flagKey, historyLimit.defaultValue, "Maximum number of records in a room's video history")
	pflag.Duration(roomIdleTimeout.flagKey, roomIdleTimeout.defaultValue, "Idle time after which a room is cleaned up")
	pflag.Duration(sweepInterval.flagKey, sweepInterval.defaultValue, "How often idle rooms are swept")
	pflag.Float64(syncTolerance.flagKey, syncTolerance.defaultValue, "Playback drift in seconds before a client is told to reseek")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(membersLimit.flagKey, membersLimit.envKey)
	viper.BindEnv(historyLimit.flagKey, historyLimit.envKey)
	viper.BindEnv(roomIdleTimeout.flagKey, roomIdleTimeout.envKey)
	viper.BindEnv(sweepInterval.flagKey, sweepInterval.envKey)
	viper.BindEnv(syncTolerance.flagKey, syncTolerance.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(membersLimit.flagKey, membersLimit.defaultValue)
	viper.SetDefault(historyLimit.flagKey, historyLimit.defaultValue)
	viper.SetDefault(roomIdleTimeout.flagKey, roomIdleTimeout.defaultValue)
	viper.SetDefault(sweepInterval.flagKey, sweepInterval.defaultValue)
	viper.SetDefault(syncTolerance.flagKey, syncTolerance.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	config := &app.AppConfig{
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		MembersLimit:    viper.GetInt(membersLimit.flagKey),
		HistoryLimit:    viper.GetInt(historyLimit.flagKey),
		RoomIdleTimeout: viper.GetDuration(roomIdleTimeout.flagKey),
		SweepInterval:   viper.GetDuration(sweepInterval.flagKey),
		SyncTolerance:   viper.GetFloat64(syncTolerance.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}

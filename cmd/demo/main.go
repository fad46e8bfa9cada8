package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/jensneuse/abstractlogger"
	"go.uber.org/zap"

	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/client"
)

func main() {
	httpEndpoint := flag.String("http-endpoint", "http://localhost:4000/graphql", "GraphQL HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "ws://localhost:4000/graphql", "GraphQL WebSocket endpoint")
	username := flag.String("username", "username1", "WinCC Unified user")
	password := flag.String("password", "password1", "WinCC Unified password")
	tags := flag.String("tags", "HMI_Tag_1,HMI_Tag_2", "Comma-separated tag names")
	alarms := flag.Bool("alarms", true, "Also stream active alarms")
	debug := flag.Bool("debug", false, "Verbose logging")
	flag.Parse()

	logger := newLogger(*debug)
	tagNames := strings.Split(*tags, ",")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, logger, *httpEndpoint, *wsEndpoint, *username, *password, tagNames, *alarms); err != nil {
		log.Fatal(err)
	}
}

func newLogger(debug bool) abstractlogger.Logger {
	level := abstractlogger.InfoLevel
	cfg := zap.NewProductionConfig()
	if debug {
		level = abstractlogger.DebugLevel
		cfg = zap.NewDevelopmentConfig()
	}
	zapLogger, err := cfg.Build()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	return abstractlogger.NewZapLogger(zapLogger, level)
}

func run(ctx context.Context, logger abstractlogger.Logger, httpEndpoint, wsEndpoint, username, password string, tags []string, alarms bool) error {
	c := client.New(client.Config{
		HTTPEndpoint:          httpEndpoint,
		WSEndpoint:            wsEndpoint,
		Logger:                logger,
		ExtendSessionInterval: time.Minute,
	})
	defer c.Close()

	session, err := c.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if session.User != nil {
		fmt.Printf("logged in as %s\n", str(session.User.Name))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := c.Logout(ctx, false); err != nil {
			logger.Error("demo.logout", abstractlogger.Error(err))
		}
	}()

	values, err := c.TagValues(ctx, tags)
	if err != nil {
		return err
	}
	for _, v := range values {
		if v.Error != nil {
			fmt.Printf("%s: error %v\n", str(v.Name), v.Error)
			continue
		}
		if v.Value != nil {
			fmt.Printf("%s = %v @ %s\n", str(v.Name), v.Value.Value, str(v.Value.Timestamp))
		}
	}

	var wg sync.WaitGroup

	tagEvents, tagSub, err := c.SubscribeTagValues(ctx, tags)
	if err != nil {
		return err
	}
	defer tagSub.Cancel()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range tagEvents {
			if event.Value != nil {
				fmt.Printf("[%s] %s = %v (%s)\n",
					event.NotificationReason, str(event.Name), event.Value.Value, str(event.Value.Timestamp))
			}
		}
	}()

	if alarms {
		alarmEvents, alarmSub, err := c.SubscribeActiveAlarms(ctx)
		if err != nil {
			return err
		}
		defer alarmSub.Cancel()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range alarmEvents {
				fmt.Printf("[%s] alarm %s state=%s\n",
					event.NotificationReason, str(event.Name), str(event.State))
			}
		}()
	}

	<-ctx.Done()
	fmt.Println("shutting down")
	c.DisconnectSubscriptions()
	wg.Wait()
	return nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

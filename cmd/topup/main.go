package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fsdevblog/groph-topup/internal/app"
	"github.com/fsdevblog/groph-topup/internal/config"
	"github.com/fsdevblog/groph-topup/internal/logger"
	"github.com/fsdevblog/groph-topup/internal/transport/api/tokens"
)

func main() {
	conf := config.MustLoadConfig()
	l := logger.New(os.Stdout)

	// режим выпуска токена для слоя бота: печатаем JWT и выходим.
	if conf.IssueTokenFor != 0 {
		token, err := tokens.GenerateUserJWT(conf.IssueTokenFor, conf.TokenTTL, []byte(conf.JWTUserSecret))
		if err != nil {
			panic(err)
		}
		fmt.Println(token) //nolint:forbidigo
		return
	}

	if err := app.New(conf, l).Run(); err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("graceful shutdown")
			os.Exit(0)
		}
		panic(err)
	}
}

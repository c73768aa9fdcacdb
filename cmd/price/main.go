/**
 * Copyright 2025-present Guildmint Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"

	"guildmint/internal/api"
	"guildmint/internal/common"
	"guildmint/internal/config"

	"go.uber.org/zap"
)

func printQuote(quote *api.PriceQuote, timeframe string) {
	pair := fmt.Sprintf("%s/%s", quote.BaseTicker, quote.QuoteTicker)
	common.PrintHeader(fmt.Sprintf("PRICE: %s", pair), common.DefaultWidth)

	if quote.Latest == nil {
		fmt.Println("No trades recorded for this pair")
		return
	}

	fmt.Printf("│  latest: %s %s per %s\n", quote.Latest.String(), quote.QuoteTicker, quote.BaseTicker)
	if quote.VWAP != nil {
		fmt.Printf("└  vwap:   %s (%s window)\n", quote.VWAP.String(), timeframe)
	} else {
		fmt.Printf("└  vwap:   no trades in the %s window\n", timeframe)
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	baseFlag := flag.String("base", "", "Ticker to price (required)")
	quoteFlag := flag.String("quote", "", "Ticker to price it in (required)")
	timeframeFlag := flag.String("timeframe", "1d", "VWAP window, e.g. 15m, 4h, 7d, 1mnt")
	flag.Parse()

	if *baseFlag == "" || *quoteFlag == "" {
		zap.L().Fatal("The -base and -quote flags are required")
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	quote, err := services.Settlement.Price(ctx, *baseFlag, *quoteFlag, *timeframeFlag)
	if err != nil {
		zap.L().Fatal("Failed to compute price", zap.Error(err))
	}

	printQuote(quote, *timeframeFlag)
}

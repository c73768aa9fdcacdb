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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func printTransfer(result *api.TransferResult, ticker string) {
	common.PrintHeader(fmt.Sprintf("TRANSFER: %s", result.TxUuid), common.DefaultWidth)
	fmt.Printf("│  gross: %s %s\n", result.Gross.String(), ticker)
	fmt.Printf("│  tax:   %s %s\n", result.Tax.String(), ticker)
	fmt.Printf("└  net:   %s %s\n", result.Net.String(), ticker)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fromFlag := flag.Int64("from", 0, "Sending owner id (required)")
	toFlag := flag.Int64("to", 0, "Receiving owner id (required)")
	tickerFlag := flag.String("ticker", "", "Currency ticker (required)")
	amountFlag := flag.String("amount", "", "Gross amount to send (required)")
	flag.Parse()

	if *fromFlag == 0 || *toFlag == 0 || *tickerFlag == "" || *amountFlag == "" {
		zap.L().Fatal("The -from, -to, -ticker and -amount flags are all required")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.String("amount", *amountFlag), zap.Error(err))
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

	result, err := services.Settlement.Transfer(ctx, *fromFlag, *toFlag, *tickerFlag, amount)
	if err != nil {
		zap.L().Fatal("Transfer failed", zap.Error(err))
	}

	printTransfer(result, *tickerFlag)
}

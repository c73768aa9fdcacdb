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

	"guildmint/internal/common"
	"guildmint/internal/config"
	"guildmint/internal/database"
	"guildmint/internal/models"

	"go.uber.org/zap"
)

func formatUuid(txUuid string) string {
	if len(txUuid) > 8 {
		return txUuid[:8] + "..."
	}
	return txUuid
}

func printBalances(balances []database.OwnerBalance) {
	for i, balance := range balances {
		isLast := i == len(balances)-1
		fmt.Printf("%s %-8s %-20s: %20s\n",
			common.BoxPrefix(isLast),
			balance.Ticker,
			balance.Name,
			balance.Balance.String())
	}
}

func printHistory(history []models.Transaction, accountId string) {
	for i, record := range history {
		isLast := i == len(history)-1
		direction := "received"
		if record.SenderAccountId == accountId {
			direction = "sent"
		}
		fmt.Printf("%s %s %8s %20s  %s\n",
			common.BoxPrefix(isLast),
			formatUuid(record.Uuid),
			direction,
			record.Amount.String(),
			record.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ownerFlag := flag.Int64("owner", 0, "Owner id to report on (required)")
	tickerFlag := flag.String("ticker", "", "Also print recent transactions in this currency")
	limitFlag := flag.Int("limit", 20, "Number of transactions to print")
	flag.Parse()

	if *ownerFlag == 0 {
		logger.Fatal("The -owner flag is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	balances, err := dbService.ListBalances(ctx, *ownerFlag)
	if err != nil {
		logger.Fatal("Failed to list balances", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("BALANCE REPORT: owner %d", *ownerFlag), common.DefaultWidth)
	if len(balances) == 0 {
		fmt.Println("No holdings")
	} else {
		printBalances(balances)
	}

	if *tickerFlag != "" {
		currency, err := dbService.GetCurrencyByTicker(ctx, *tickerFlag)
		if err != nil {
			logger.Fatal("Unknown currency", zap.String("ticker", *tickerFlag), zap.Error(err))
		}
		account, err := dbService.GetAccount(ctx, *ownerFlag, currency.Id)
		if err != nil {
			logger.Fatal("No account in currency", zap.String("ticker", *tickerFlag), zap.Error(err))
		}

		history, err := dbService.TransactionHistory(ctx, account.Id, *limitFlag, 0)
		if err != nil {
			logger.Fatal("Failed to load transaction history", zap.Error(err))
		}

		fmt.Printf("\n┌─ Transactions: %s (%d shown)\n", currency.Ticker, len(history))
		common.PrintBoxSeparator(78)
		printHistory(history, account.Id)
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d holdings", len(balances)), common.DefaultWidth)
}

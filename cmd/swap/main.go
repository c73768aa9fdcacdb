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
	"guildmint/internal/models"
	"guildmint/internal/swap"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func printSwap(s *models.Swap) {
	taker := s.TakerAccountId
	if taker == "" {
		taker = "open"
	}
	fmt.Printf("│  Swap #%d [%s]\n", s.Id, s.Status)
	fmt.Printf("│    offers:  %s (currency %d)\n", s.MakerAmount.String(), s.MakerCurrencyId)
	fmt.Printf("│    asks:    %s (currency %d)\n", s.TakerAmount.String(), s.TakerCurrencyId)
	fmt.Printf("│    taker:   %s\n", taker)
	fmt.Printf("└    updated: %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func runCreate(ctx context.Context, services *common.Services, actor, taker int64, makerTicker, makerAmount, takerTicker, takerAmount string) {
	offered, err := decimal.NewFromString(makerAmount)
	if err != nil {
		zap.L().Fatal("Invalid maker amount", zap.String("amount", makerAmount), zap.Error(err))
	}
	asked, err := decimal.NewFromString(takerAmount)
	if err != nil {
		zap.L().Fatal("Invalid taker amount", zap.String("amount", takerAmount), zap.Error(err))
	}

	created, err := services.Settlement.CreateSwap(ctx, swap.CreateParams{
		MakerOwnerId: actor,
		TakerOwnerId: taker,
		MakerTicker:  makerTicker,
		MakerAmount:  offered,
		TakerTicker:  takerTicker,
		TakerAmount:  asked,
	})
	if err != nil {
		zap.L().Fatal("Failed to create swap", zap.Error(err))
	}
	printSwap(created)
}

func runList(ctx context.Context, services *common.Services) {
	swaps, err := services.Settlement.OpenSwaps(ctx)
	if err != nil {
		zap.L().Fatal("Failed to list open swaps", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("OPEN SWAPS: %d", len(swaps)), common.DefaultWidth)
	for i := range swaps {
		printSwap(&swaps[i])
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	actionFlag := flag.String("action", "list", "One of: create, accept, deny, status, list")
	actorFlag := flag.Int64("actor", 0, "Acting owner id")
	swapIdFlag := flag.Int64("swap", 0, "Swap id for accept, deny and status")
	takerFlag := flag.Int64("taker", 0, "Target owner id for create (0 for an open swap)")
	makerTickerFlag := flag.String("offer-ticker", "", "Currency offered by the maker")
	makerAmountFlag := flag.String("offer-amount", "", "Amount offered by the maker")
	takerTickerFlag := flag.String("ask-ticker", "", "Currency asked from the taker")
	takerAmountFlag := flag.String("ask-amount", "", "Amount asked from the taker")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	switch *actionFlag {
	case "create":
		runCreate(ctx, services, *actorFlag, *takerFlag,
			*makerTickerFlag, *makerAmountFlag, *takerTickerFlag, *takerAmountFlag)
	case "accept":
		accepted, err := services.Settlement.AcceptSwap(ctx, *swapIdFlag, *actorFlag)
		if err != nil {
			zap.L().Fatal("Failed to accept swap", zap.Int64("swap_id", *swapIdFlag), zap.Error(err))
		}
		printSwap(accepted)
	case "deny":
		cancelled, err := services.Settlement.DenySwap(ctx, *swapIdFlag, *actorFlag)
		if err != nil {
			zap.L().Fatal("Failed to deny swap", zap.Int64("swap_id", *swapIdFlag), zap.Error(err))
		}
		printSwap(cancelled)
	case "status":
		current, err := services.Settlement.SwapStatus(ctx, *swapIdFlag)
		if err != nil {
			zap.L().Fatal("Failed to load swap", zap.Int64("swap_id", *swapIdFlag), zap.Error(err))
		}
		printSwap(current)
	case "list":
		runList(ctx, services)
	default:
		zap.L().Fatal("Unknown action", zap.String("action", *actionFlag))
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/application"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	gatewaykafka "github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/kafka"
	"github.com/dmehra2102/sokinpay-gateway/pkg/tracing"
)

func newRefundCmd() *cobra.Command {
	var (
		amount  string
		reason  string
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "refund <order-id>",
		Short: "Refund an order against its first Sokin payment",
		Long: `Refund an order against the first payment of its Sokin session.

With --publish the refund is queued on the refunds topic for the running
gateway service instead of being submitted directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			if !amt.IsPositive() {
				return domain.ErrInvalidAmount
			}
			ev := domain.RefundRequested{OrderID: args[0], Amount: amt, Reason: reason}
			if publish {
				return publishRefund(cmd, ev)
			}

			c, err := openCore(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			refund, err := c.refunds.CreateRefund(cmd.Context(), ev.OrderID, ev.Amount, ev.Reason)
			if err != nil {
				if msg, ok := application.DisplayMessage(err); ok {
					return errors.New("Sokin Pay rejected the refund: " + msg)
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), refund)
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount to refund, in the order currency")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Refund reason sent to Sokin as the description")
	cmd.Flags().BoolVar(&publish, "publish", false, "Queue the refund on Kafka instead of calling Sokin")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func publishRefund(cmd *cobra.Command, ev domain.RefundRequested) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	w := gatewaykafka.NewWriter(cfg.KafkaBrokers)
	defer w.Close()
	msg := refundMessage(cmd.Context(), cfg.Topics.Refunds, ev.OrderID, value)
	if err := w.WriteMessages(cmd.Context(), msg); err != nil {
		return fmt.Errorf("publish refund: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "refund for order %s queued on %s\n", ev.OrderID, cfg.Topics.Refunds)
	return nil
}

func refundMessage(ctx context.Context, topic, orderID string, value []byte) kafka.Message {
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(orderID),
		Value:   value,
		Headers: tracing.InjectKafkaHeaders(ctx, []kafka.Header{{Key: "event_type", Value: []byte("RefundRequested")}}),
	}
}

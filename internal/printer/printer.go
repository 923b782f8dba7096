// Package printer sends rendered receipts to a network receipt printer.
package printer

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	printTimeout = 5 * time.Second
	lineWidth    = 40
)

// Network writes plain-text receipts to a TCP printer endpoint. Each print
// is one short-lived connection bounded by a hard timeout so a wedged
// printer cannot stall a checkout.
type Network struct {
	addr string
}

func NewNetwork(addr string) *Network {
	return &Network{addr: addr}
}

func (p *Network) Print(ctx context.Context, r entity.Receipt) error {
	ctx, cancel := context.WithTimeout(ctx, printTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("printer dial %s: %w", p.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(Render(r))); err != nil {
		return fmt.Errorf("printer write: %w", err)
	}

	logger.Info().Str("receipt", r.ReceiptNumber).Msg("Receipt printed")
	return nil
}

// Render lays the receipt out as fixed-width text.
func Render(r entity.Receipt) string {
	var b strings.Builder

	center(&b, r.BusinessName)
	if r.Address != "" {
		center(&b, r.Address)
	}
	if r.TaxID != "" {
		center(&b, "Tax ID: "+r.TaxID)
	}
	rule(&b)

	fmt.Fprintf(&b, "Receipt: %s\n", r.ReceiptNumber)
	fmt.Fprintf(&b, "Order:   %s\n", r.OrderNumber)
	fmt.Fprintf(&b, "Date:    %s\n", r.Date.Format("2006-01-02 15:04"))
	if r.Table != "" {
		fmt.Fprintf(&b, "Table:   %s\n", r.Table)
	}
	if r.Waiter != "" {
		fmt.Fprintf(&b, "Waiter:  %s\n", r.Waiter)
	}
	fmt.Fprintf(&b, "Cashier: %s\n", r.Cashier)
	rule(&b)

	for _, it := range r.Items {
		fmt.Fprintf(&b, "%s\n", it.Name)
		amount := fmt.Sprintf("%s x %s = %s", it.Quantity.String(), it.UnitPrice.StringFixed(2), it.Subtotal.StringFixed(2))
		fmt.Fprintf(&b, "%*s\n", lineWidth, amount)
	}
	rule(&b)

	row(&b, "Subtotal", r.Subtotal.StringFixed(2))
	row(&b, "Tax", r.Tax.StringFixed(2))
	row(&b, "TOTAL", r.Total.StringFixed(2))
	row(&b, "Paid ("+string(r.PaymentMethod)+")", r.AmountPaid.StringFixed(2))
	if r.TransactionRef != "" {
		fmt.Fprintf(&b, "Ref: %s\n", r.TransactionRef)
	}
	rule(&b)

	center(&b, "Thank you!")
	b.WriteString("\n\n\n")
	return b.String()
}

func rule(b *strings.Builder) {
	b.WriteString(strings.Repeat("-", lineWidth))
	b.WriteByte('\n')
}

func center(b *strings.Builder, s string) {
	if pad := (lineWidth - len(s)) / 2; pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(s)
	b.WriteByte('\n')
}

func row(b *strings.Builder, label, value string) {
	gap := lineWidth - len(label) - len(value)
	if gap < 1 {
		gap = 1
	}
	fmt.Fprintf(b, "%s%s%s\n", label, strings.Repeat(" ", gap), value)
}

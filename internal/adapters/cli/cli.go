package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pharmacy-orders/internal/app"
	"pharmacy-orders/internal/core"
)

// Usage lists the available commands.
const Usage = `Usage: app <command> [args]

Commands:
  stock     <drug-id>                               show a drug and its stock
  low-stock [threshold]                             list drugs at or below threshold
  adjust    <drug-id> <change-type> <delta> [reason] record a manual stock change
  audit     <drug-id> [limit]                       print the inventory log for a drug
  dispense  <prescription-id> [override-refills]    consume one refill
  reject    <prescription-id> <reason>              reject a prescription
  reconcile                                         check every drug against its log
  migrate                                           apply database migrations`

// ErrDrift is returned by the reconcile command when at least one drug's stock
// disagrees with its inventory log.
var ErrDrift = errors.New("inventory ledger drift detected")

// Run executes a one-shot CLI command as actor and writes its output to out.
// args is os.Args[1:]; the first element is the subcommand name. "migrate" is
// handled by the caller before services are built.
func Run(ctx context.Context, svc app.ApplicationService, actor core.Actor, out io.Writer, args []string) error {
	if len(args) == 0 {
		return errors.New(Usage)
	}

	switch args[0] {
	case "stock", "s":
		if len(args) < 2 {
			return fmt.Errorf("usage: app stock <drug-id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		result, err := svc.GetDrug(ctx, actor, id)
		if err != nil {
			return fmt.Errorf("get drug: %w", err)
		}
		printDrugs(out, []core.Drug{*result.Drug})

	case "low-stock", "low":
		var threshold *int
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid threshold %q", args[1])
			}
			threshold = &n
		}
		result, err := svc.LowStock(ctx, actor, threshold)
		if err != nil {
			return fmt.Errorf("low stock: %w", err)
		}
		fmt.Fprintf(out, "Drugs with stock <= %d\n", result.Threshold)
		printDrugs(out, result.Drugs)

	case "adjust", "adj":
		if len(args) < 4 {
			return fmt.Errorf("usage: app adjust <drug-id> <change-type> <delta> [reason]")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		delta, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid delta %q", args[3])
		}
		result, err := svc.AdjustStock(ctx, actor, app.AdjustStockRequest{
			DrugID:     id,
			ChangeType: args[2],
			Delta:      delta,
			Reason:     strings.Join(args[4:], " "),
		})
		if err != nil {
			return fmt.Errorf("adjust stock: %w", err)
		}
		fmt.Fprintf(out, "Stock for %s is now %d.\n", result.Drug.Name, result.Drug.Stock)

	case "audit", "log":
		if len(args) < 2 {
			return fmt.Errorf("usage: app audit <drug-id> [limit]")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		limit := 0
		if len(args) > 2 {
			if limit, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("invalid limit %q", args[2])
			}
		}
		result, err := svc.InventoryLog(ctx, actor, id, limit)
		if err != nil {
			return fmt.Errorf("inventory log: %w", err)
		}
		printLog(out, result)

	case "dispense", "d":
		if len(args) < 2 {
			return fmt.Errorf("usage: app dispense <prescription-id> [override-refills]")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		req := app.DispenseRequest{PrescriptionID: id}
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid override %q", args[2])
			}
			req.OverrideRefillAllowed = &n
		}
		result, err := svc.DispensePrescription(ctx, actor, req)
		if err != nil {
			return fmt.Errorf("dispense: %w", err)
		}
		p := result.Prescription
		fmt.Fprintf(out, "Prescription %d: %s, %d of %d refills used, %d remaining.\n",
			p.ID, p.Status, p.RefillUsed, p.RefillAllowed, result.Remaining)

	case "reject":
		if len(args) < 3 {
			return fmt.Errorf("usage: app reject <prescription-id> <reason>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		result, err := svc.RejectPrescription(ctx, actor, app.RejectRequest{
			PrescriptionID: id,
			Reason:         strings.Join(args[2:], " "),
		})
		if err != nil {
			return fmt.Errorf("reject: %w", err)
		}
		fmt.Fprintf(out, "Prescription %d rejected.\n", result.Prescription.ID)

	case "reconcile", "rec":
		result, err := svc.Reconcile(ctx, actor)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		printReconcile(out, result)
		if !result.Balanced {
			return ErrDrift
		}

	default:
		return fmt.Errorf("unknown command: %s\n\n%s", args[0], Usage)
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func printDrugs(out io.Writer, drugs []core.Drug) {
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  %-6s %-32s %10s %8s %8s\n", "ID", "NAME", "PRICE", "STOCK", "ACTIVE")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	if len(drugs) == 0 {
		fmt.Fprintln(out, "  No drugs found.")
	}
	for _, d := range drugs {
		fmt.Fprintf(out, "  %-6d %-32s %10s %8d %8t\n", d.ID, d.Name, d.Price.StringFixed(2), d.Stock, d.IsActive)
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func printLog(out io.Writer, result *app.InventoryLogResult) {
	fmt.Fprintf(out, "Inventory log for drug %d\n", result.DrugID)
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "  %-20s %-18s %8s  %s\n", "TIME", "TYPE", "DELTA", "REASON")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, e := range result.Entries {
		fmt.Fprintf(out, "  %-20s %-18s %+8d  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.ChangeType, e.QuantityChanged, e.Reason)
	}
	fmt.Fprintln(out, strings.Repeat("=", 80))
}

func printReconcile(out io.Writer, result *app.ReconcileResult) {
	if result.Balanced {
		fmt.Fprintln(out, "All drugs reconcile with the inventory log.")
		return
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  %-6s %-30s %8s %8s %8s\n", "ID", "NAME", "STOCK", "EXPECTED", "LOG SUM")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, d := range result.Drift {
		fmt.Fprintf(out, "  %-6d %-30s %8d %8d %8d\n", d.DrugID, d.Name, d.Stock, d.Expected(), d.LogSum)
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

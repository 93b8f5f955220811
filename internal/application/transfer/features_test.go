package transfer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"

	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
	"github.com/jhoicas/Franquicias-api/internal/domain"
	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
)

type transferFeatureContext struct {
	f        *fixture
	transfer *entity.Transfer
	err      error
}

var featureProducts = map[string]struct{ central, local string }{
	"A": {productA, localA},
	"B": {productB, localB},
}

func (c *transferFeatureContext) reset() error {
	f, err := buildFixture(nil, stepClock())
	if err != nil {
		return err
	}
	c.f = f
	c.transfer = nil
	c.err = nil
	return nil
}

func (c *transferFeatureContext) centralStockIs(name string, qty int) error {
	p, ok := featureProducts[name]
	if !ok {
		return fmt.Errorf("producto desconocido %q", name)
	}
	lvl, err := c.f.store.Stores().Products.GetStock(context.Background(), p.central)
	if err != nil {
		return err
	}
	delta := int64(qty) - lvl.Quantity
	if delta == 0 {
		return nil
	}
	_, err = c.f.seeder.AdjustDirect(context.Background(), inventory.AdjustInput{
		Scope: entity.StockScopeCentral, ProductID: p.central, Delta: delta,
		Type: entity.TxTypeAdjustment, PerformedBy: adminID,
	})
	return err
}

func (c *transferFeatureContext) requestedTransfer(qtyA int, nameA string, qtyB int, nameB string) error {
	a, b := featureProducts[nameA], featureProducts[nameB]
	t, err := c.f.uc.Create(c.f.managerCtx, transferCreate(
		item(a.central, a.local, int64(qtyA)),
		item(b.central, b.local, int64(qtyB)),
	))
	if err != nil {
		return err
	}
	c.transfer = t
	return nil
}

func (c *transferFeatureContext) adminApproves() error {
	_, c.err = c.f.uc.Approve(c.f.adminCtx, c.transfer.ID, "", "")
	return nil
}

func (c *transferFeatureContext) adminRejects(reason string) error {
	_, c.err = c.f.uc.Reject(c.f.adminCtx, c.transfer.ID, "", reason)
	return c.err
}

func (c *transferFeatureContext) advancesTo(status string) error {
	_, err := c.f.uc.AdvanceStatus(c.f.adminCtx, c.transfer.ID, entity.TransferStatus(status), "")
	return err
}

func (c *transferFeatureContext) wasShipped() error {
	if err := c.adminApproves(); err != nil || c.err != nil {
		return errors.Join(err, c.err)
	}
	if err := c.advancesTo(string(entity.TransferStatusProcessing)); err != nil {
		return err
	}
	return c.advancesTo(string(entity.TransferStatusShipped))
}

func (c *transferFeatureContext) franchiseReceives() error {
	_, err := c.f.uc.Deliver(c.f.managerCtx, c.transfer.ID, "")
	if err != nil {
		c.err = err
	}
	return nil
}

func (c *transferFeatureContext) statusIs(want string) error {
	t, err := c.f.query.Get(context.Background(), c.transfer.ID)
	if err != nil {
		return err
	}
	if string(t.Status) != want {
		return fmt.Errorf("estado esperado %s, obtenido %s", want, t.Status)
	}
	return nil
}

func (c *transferFeatureContext) centralStockEquals(name string, want int) error {
	lvl, err := c.f.store.Stores().Products.GetStock(context.Background(), featureProducts[name].central)
	if err != nil {
		return err
	}
	if lvl.Quantity != int64(want) {
		return fmt.Errorf("stock central de %s: esperado %d, obtenido %d", name, want, lvl.Quantity)
	}
	return nil
}

func (c *transferFeatureContext) localStockEquals(name string, want int) error {
	lvl, err := c.f.store.Stores().Franchise.GetStock(context.Background(), tenant1, featureProducts[name].local)
	if err != nil {
		return err
	}
	if lvl.Quantity != int64(want) {
		return fmt.Errorf("stock local de %s: esperado %d, obtenido %d", name, want, lvl.Quantity)
	}
	return nil
}

func (c *transferFeatureContext) movementsEqual(want int) error {
	all, err := inventory.NewStockLedger(c.f.store.Stores().Ledger, nil).Collect(context.Background(), entity.LedgerFilter{}, 0)
	if err != nil {
		return err
	}
	var n int
	for _, e := range all {
		if e.ReferenceID == c.transfer.ID {
			n++
		}
	}
	if n != want {
		return fmt.Errorf("movimientos esperados %d, obtenidos %d", want, n)
	}
	return nil
}

func (c *transferFeatureContext) failsWithInsufficientStock(name string) error {
	var ise *domain.InsufficientStockError
	if !errors.As(c.err, &ise) {
		return fmt.Errorf("se esperaba stock insuficiente, obtenido %v", c.err)
	}
	if ise.ProductID != featureProducts[name].central {
		return fmt.Errorf("producto esperado %s, obtenido %s", featureProducts[name].central, ise.ProductID)
	}
	return nil
}

func (c *transferFeatureContext) failsWithInvalidTransition() error {
	if !errors.Is(c.err, domain.ErrInvalidTransition) {
		return fmt.Errorf("se esperaba transición inválida, obtenido %v", c.err)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &transferFeatureContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})

	ctx.Step(`^el stock central de "([^"]*)" es (\d+)$`, tc.centralStockIs)
	ctx.Step(`^una transferencia solicitada con (\d+) de "([^"]*)" y (\d+) de "([^"]*)"$`, tc.requestedTransfer)
	ctx.Step(`^el administrador aprueba la transferencia$`, tc.adminApproves)
	ctx.Step(`^el administrador rechaza la transferencia con motivo "([^"]*)"$`, tc.adminRejects)
	ctx.Step(`^la transferencia avanza a "([^"]*)"$`, tc.advancesTo)
	ctx.Step(`^la transferencia fue despachada$`, tc.wasShipped)
	ctx.Step(`^la franquicia recibe la transferencia$`, tc.franchiseReceives)
	ctx.Step(`^el estado de la transferencia es "([^"]*)"$`, tc.statusIs)
	ctx.Step(`^el stock central de "([^"]*)" queda en (\d+)$`, tc.centralStockEquals)
	ctx.Step(`^el stock local de "([^"]*)" queda en (\d+)$`, tc.localStockEquals)
	ctx.Step(`^la transferencia tiene (\d+) movimientos de stock$`, tc.movementsEqual)
	ctx.Step(`^la operación falla por stock insuficiente de "([^"]*)"$`, tc.failsWithInsufficientStock)
	ctx.Step(`^la operación falla por transición inválida$`, tc.failsWithInvalidTransition)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

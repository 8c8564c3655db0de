package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oficinaplus/workshop_backend/config"
	"github.com/oficinaplus/workshop_backend/models"
	"github.com/oficinaplus/workshop_backend/utils"
	"github.com/shopspring/decimal"
)

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func intPtr(v int) *int { return &v }

func newTenantContext(t *testing.T) (context.Context, string) {
	t.Helper()
	businessID := uuid.NewString()
	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetBusinessIdInContext(ctx, businessID)
	return ctx, businessID
}

func productStock(t *testing.T, ctx context.Context, productID int) decimal.Decimal {
	t.Helper()
	p, err := models.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("GetProduct(%d): %v", productID, err)
	}
	return p.StockQty
}

func movementNet(t *testing.T, ctx context.Context, documentRef string) (decimal.Decimal, int) {
	t.Helper()
	movements, err := models.GetStockMovementsByDocumentRef(ctx, documentRef)
	if err != nil {
		t.Fatalf("GetStockMovementsByDocumentRef(%s): %v", documentRef, err)
	}
	net := decimal.Zero
	for _, m := range movements {
		net = net.Add(m.Qty)
	}
	return net, len(movements)
}

func TestServiceOrderLifecycleRegression(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "workshop_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx, _ := newTenantContext(t)

	vehicle, err := models.CreateVehicle(ctx, &models.NewVehicle{
		PlateNumber: "ABC-1234",
		Description: "Grey sedan",
		InitialKm:   intPtr(50000),
	})
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}

	filter, err := models.CreateProduct(ctx, &models.NewProduct{
		Code:      "FLT-001",
		Name:      "Oil Filter",
		StockQty:  mustDec(t, "10"),
		SalePrice: mustDec(t, "12.5"),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	oilChange, err := models.CreateWorkshopService(ctx, &models.NewWorkshopService{
		Name:      "Oil Change",
		BasePrice: mustDec(t, "35"),
	})
	if err != nil {
		t.Fatalf("CreateWorkshopService: %v", err)
	}

	// Create: three filters deducted, one OUT movement, odometer synced.
	order, err := models.CreateServiceOrder(ctx, &models.NewServiceOrder{
		VehicleId: vehicle.ID,
		KmEntry:   intPtr(51000),
		ServiceDetails: []models.NewServiceOrderServiceDetail{
			{ServiceId: oilChange.ID, Qty: mustDec(t, "1")},
		},
		PartDetails: []models.NewServiceOrderPartDetail{
			{ProductId: filter.ID, Qty: mustDec(t, "3")},
		},
		Charges: []models.NewServiceOrderCharge{
			{Description: "Towing", Amount: mustDec(t, "40")},
		},
	})
	if err != nil {
		t.Fatalf("CreateServiceOrder: %v", err)
	}
	if order.OrderNumber != "0001" {
		t.Fatalf("first order number: got %q, want 0001", order.OrderNumber)
	}
	if order.CurrentStatus != models.ServiceOrderStatusScheduled {
		t.Fatalf("new order status: got %s", order.CurrentStatus)
	}
	if want := mustDec(t, "112.5"); !order.OrderTotalAmount.Equal(want) {
		t.Fatalf("order total: got %s, want %s", order.OrderTotalAmount, want)
	}
	if got := productStock(t, ctx, filter.ID); !got.Equal(mustDec(t, "7")) {
		t.Fatalf("stock after create: got %s, want 7", got)
	}
	if net, count := movementNet(t, ctx, order.OrderNumber); count != 1 || !net.Equal(mustDec(t, "-3")) {
		t.Fatalf("movements after create: count=%d net=%s", count, net)
	}
	syncedVehicle, err := models.GetVehicle(ctx, vehicle.ID)
	if err != nil {
		t.Fatalf("GetVehicle: %v", err)
	}
	if syncedVehicle.CurrentKm == nil || *syncedVehicle.CurrentKm != 51000 {
		t.Fatalf("odometer after create: got %v, want 51000", syncedVehicle.CurrentKm)
	}

	// Edit: replace the part lines with qty 1. Net effect is +2 back to
	// stock, recorded as RETURN(3) + OUT(1).
	order, err = models.UpdateServiceOrder(ctx, order.ID, &models.EditServiceOrder{
		PartDetails: []models.NewServiceOrderPartDetail{
			{ProductId: filter.ID, Qty: mustDec(t, "1")},
		},
	})
	if err != nil {
		t.Fatalf("UpdateServiceOrder(replace parts): %v", err)
	}
	if got := productStock(t, ctx, filter.ID); !got.Equal(mustDec(t, "9")) {
		t.Fatalf("stock after edit: got %s, want 9", got)
	}
	if net, count := movementNet(t, ctx, order.OrderNumber); count != 3 || !net.Equal(mustDec(t, "-1")) {
		t.Fatalf("movements after edit: count=%d net=%s", count, net)
	}
	if want := mustDec(t, "87.5"); !order.OrderTotalAmount.Equal(want) {
		t.Fatalf("total after edit: got %s, want %s", order.OrderTotalAmount, want)
	}
	if len(order.PartDetails) != 1 || !order.PartDetails[0].DetailQty.Equal(mustDec(t, "1")) {
		t.Fatalf("part lines after edit: %+v", order.PartDetails)
	}

	// Cancel: the one remaining filter comes back.
	cancelled := models.ServiceOrderStatusCancelled
	order, err = models.UpdateServiceOrder(ctx, order.ID, &models.EditServiceOrder{
		CurrentStatus: &cancelled,
	})
	if err != nil {
		t.Fatalf("UpdateServiceOrder(cancel): %v", err)
	}
	if order.CurrentStatus != models.ServiceOrderStatusCancelled {
		t.Fatalf("status after cancel: got %s", order.CurrentStatus)
	}
	if got := productStock(t, ctx, filter.ID); !got.Equal(mustDec(t, "10")) {
		t.Fatalf("stock after cancel: got %s, want 10", got)
	}
	if net, count := movementNet(t, ctx, order.OrderNumber); count != 4 || !net.Equal(decimal.Zero) {
		t.Fatalf("movements after cancel: count=%d net=%s", count, net)
	}

	// Line edits on a cancelled order are rejected: the cancellation reversal
	// already returned the parts, and replacing lines now would build a
	// RETURN leg from parts that are back on the shelf.
	if _, err := models.UpdateServiceOrder(ctx, order.ID, &models.EditServiceOrder{
		PartDetails: []models.NewServiceOrderPartDetail{
			{ProductId: filter.ID, Qty: mustDec(t, "1")},
		},
	}); !errors.Is(err, models.ErrorCancelledOrderNotEditable) {
		t.Fatalf("edit of cancelled order: got %v, want ErrorCancelledOrderNotEditable", err)
	}
	if got := productStock(t, ctx, filter.ID); !got.Equal(mustDec(t, "10")) {
		t.Fatalf("stock after rejected edit of cancelled order: got %s, want 10", got)
	}
	if _, count := movementNet(t, ctx, order.OrderNumber); count != 4 {
		t.Fatalf("movements after rejected edit: count=%d, want 4", count)
	}

	// Delete of a cancelled order must not credit stock a second time.
	if _, err := models.DeleteServiceOrder(ctx, order.ID); err != nil {
		t.Fatalf("DeleteServiceOrder(cancelled): %v", err)
	}
	if got := productStock(t, ctx, filter.ID); !got.Equal(mustDec(t, "10")) {
		t.Fatalf("stock after delete of cancelled order: got %s, want 10", got)
	}
	if _, err := models.GetServiceOrder(ctx, order.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("deleted order still readable: %v", err)
	}
	// Movement audit trail survives the document.
	if _, count := movementNet(t, ctx, "0001"); count != 4 {
		t.Fatalf("audit trail after delete: count=%d, want 4", count)
	}

	// Insufficient stock: the whole create is rejected, nothing moves.
	if _, err := models.CreateServiceOrder(ctx, &models.NewServiceOrder{
		VehicleId: vehicle.ID,
		PartDetails: []models.NewServiceOrderPartDetail{
			{ProductId: filter.ID, Qty: mustDec(t, "50")},
		},
	}); err == nil {
		t.Fatal("expected insufficient stock rejection")
	} else {
		var stockErr *models.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if !stockErr.Available.Equal(mustDec(t, "10")) || !stockErr.Required.Equal(mustDec(t, "50")) {
			t.Fatalf("stock error detail: %+v", stockErr)
		}
	}
	if got := productStock(t, ctx, filter.ID); !got.Equal(mustDec(t, "10")) {
		t.Fatalf("stock after rejected create: got %s, want 10", got)
	}

	// Delete guard and transition guard on a fresh order.
	guarded, err := models.CreateServiceOrder(ctx, &models.NewServiceOrder{
		VehicleId: vehicle.ID,
		PartDetails: []models.NewServiceOrderPartDetail{
			{ProductId: filter.ID, Qty: mustDec(t, "2")},
		},
	})
	if err != nil {
		t.Fatalf("CreateServiceOrder(guarded): %v", err)
	}
	if got := productStock(t, ctx, filter.ID); !got.Equal(mustDec(t, "8")) {
		t.Fatalf("stock after second create: got %s, want 8", got)
	}

	delivered := models.ServiceOrderStatusDelivered
	if _, err := models.UpdateServiceOrder(ctx, guarded.ID, &models.EditServiceOrder{
		CurrentStatus: &delivered,
	}); err == nil {
		t.Fatal("Scheduled -> Delivered must be rejected")
	} else {
		var transitionErr *models.InvalidStatusTransitionError
		if !errors.As(err, &transitionErr) {
			t.Fatalf("expected InvalidStatusTransitionError, got %v", err)
		}
	}

	completed := models.ServiceOrderStatusCompleted
	guarded, err = models.UpdateServiceOrder(ctx, guarded.ID, &models.EditServiceOrder{
		CurrentStatus: &completed,
	})
	if err != nil {
		t.Fatalf("UpdateServiceOrder(complete): %v", err)
	}
	if guarded.CompletedAt == nil {
		t.Fatal("CompletedAt not stamped")
	}
	if _, err := models.DeleteServiceOrder(ctx, guarded.ID); !errors.Is(err, models.ErrorOrderNotDeletable) {
		t.Fatalf("delete of completed order: got %v, want ErrorOrderNotDeletable", err)
	}

	// A lower odometer reading is recorded on the order but never lowers the
	// vehicle.
	if _, err := models.UpdateServiceOrder(ctx, guarded.ID, &models.EditServiceOrder{
		KmEntry: intPtr(50500),
	}); err != nil {
		t.Fatalf("UpdateServiceOrder(km): %v", err)
	}
	syncedVehicle, err = models.GetVehicle(ctx, vehicle.ID)
	if err != nil {
		t.Fatalf("GetVehicle: %v", err)
	}
	if syncedVehicle.CurrentKm == nil || *syncedVehicle.CurrentKm != 51000 {
		t.Fatalf("odometer lowered: got %v, want 51000", syncedVehicle.CurrentKm)
	}

	// Numbering is per tenant: a second business starts at 0001 and cannot
	// see the first tenant's orders.
	ctx2, _ := newTenantContext(t)
	vehicle2, err := models.CreateVehicle(ctx2, &models.NewVehicle{PlateNumber: "XYZ-9876"})
	if err != nil {
		t.Fatalf("CreateVehicle(tenant 2): %v", err)
	}
	order2, err := models.CreateServiceOrder(ctx2, &models.NewServiceOrder{VehicleId: vehicle2.ID})
	if err != nil {
		t.Fatalf("CreateServiceOrder(tenant 2): %v", err)
	}
	if order2.OrderNumber != "0001" {
		t.Fatalf("tenant 2 first order number: got %q, want 0001", order2.OrderNumber)
	}
	if _, err := models.GetServiceOrder(ctx2, guarded.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("tenant isolation breached: %v", err)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("workshop-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=workshop_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}

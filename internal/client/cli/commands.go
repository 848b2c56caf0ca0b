package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvasilkov/catalogsync/internal/client/models"
	"github.com/dvasilkov/catalogsync/internal/client/sync"
)

// Use selects the business all subsequent commands operate on.
func (a *App) Use(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: use <business-id>")
		return nil
	}
	a.businessID = args[0]
	printlnFn("Working on business", a.businessID)
	return nil
}

func (a *App) List(ctx context.Context) error {
	products, err := a.manager().ListProducts(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	a.printProducts(products)
	return nil
}

func (a *App) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: search <query>")
		return nil
	}
	products, err := a.manager().SearchProducts(ctx, strings.Join(args, " "))
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	a.printProducts(products)
	return nil
}

func (a *App) Add(ctx context.Context, args []string) error {
	if len(args) < 2 {
		printlnFn("Usage: add <name> <price> [category-id]")
		return nil
	}
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		printlnFn("Invalid price:", args[1])
		return nil
	}

	in := sync.ProductInput{Name: args[0], Price: price}
	if len(args) > 2 {
		in.CategoryID = args[2]
	}

	p, _, err := a.manager().CreateProduct(ctx, in)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Created product", p.ID)
	return nil
}

func (a *App) Update(ctx context.Context, args []string) error {
	if len(args) < 3 {
		printlnFn("Usage: update <id> <field> <value>   (fields: name, price, quantity, status, category, sku, currency, description)")
		return nil
	}
	id, field := args[0], args[1]
	value := strings.Join(args[2:], " ")

	var patch models.ProductPatch
	switch field {
	case "name":
		patch.Name = &value
	case "description":
		patch.Description = &value
	case "sku":
		patch.SKU = &value
	case "currency":
		patch.Currency = &value
	case "category":
		patch.CategoryID = &value
	case "status":
		status := models.ProductStatus(value)
		patch.Status = &status
	case "price":
		price, err := strconv.ParseFloat(value, 64)
		if err != nil {
			printlnFn("Invalid price:", value)
			return nil
		}
		patch.Price = &price
	case "quantity":
		qty, err := strconv.Atoi(value)
		if err != nil {
			printlnFn("Invalid quantity:", value)
			return nil
		}
		patch.Quantity = &qty
	default:
		printlnFn("Unknown field:", field)
		return nil
	}

	p, _, err := a.manager().UpdateProduct(ctx, id, patch)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Updated product", p.ID)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: del <id>")
		return nil
	}
	if _, err := a.manager().DeleteProduct(ctx, args[0]); err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Deleted product", args[0])
	return nil
}

func (a *App) Images(ctx context.Context, args []string) error {
	if len(args) < 2 {
		printlnFn("Usage: images <id> <url> [url...]")
		return nil
	}
	images := make([]models.ProductImage, 0, len(args)-1)
	for i, url := range args[1:] {
		images = append(images, models.ProductImage{URL: url, IsPrimary: i == 0})
	}
	if _, _, err := a.manager().SetProductImages(ctx, args[0], images); err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Images updated for product", args[0])
	return nil
}

func (a *App) Cats(ctx context.Context) error {
	cats, err := a.manager().ListCategories(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	if len(cats) == 0 {
		printlnFn("No categories")
		return nil
	}
	for _, c := range cats {
		line := fmt.Sprintf("%s  %s (%d products)", c.ID, c.Name, c.ProductCount)
		if c.ParentID != "" {
			line += "  parent=" + c.ParentID
		}
		if c.PendingSync {
			line += "  *pending"
		}
		printlnFn(line)
	}
	return nil
}

func (a *App) AddCat(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: addcat <name> [parent-id]")
		return nil
	}
	in := sync.CategoryInput{Name: args[0], IsActive: true}
	if len(args) > 1 {
		in.ParentID = args[1]
	}
	c, _, err := a.manager().CreateCategory(ctx, in)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Created category", c.ID)
	return nil
}

func (a *App) DelCat(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: delcat <id>")
		return nil
	}
	if _, err := a.manager().DeleteCategory(ctx, args[0]); err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Deleted category", args[0])
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	res, err := a.manager().Sync(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	a.printSyncResult(res)
	return nil
}

func (a *App) FullSync(ctx context.Context) error {
	res, err := a.manager().FullSync(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	a.printSyncResult(res)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	if !a.hasBusiness() {
		online := "offline"
		if a.watcher.Online() {
			online = "online"
		}
		printlnFn("Connectivity:", online)
		return nil
	}

	st, err := a.manager().GetSyncStatus(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	last := "never"
	if !st.LastSyncAt.IsZero() {
		last = st.LastSyncAt.Local().Format("2006-01-02 15:04:05")
	}
	printlnFn(fmt.Sprintf("Last sync: %s | pending: %d | conflicts: %d | online: %t",
		last, st.PendingChangeCount, st.ConflictCount, st.IsOnline))
	return nil
}

func (a *App) printProducts(products []models.Product) {
	if len(products) == 0 {
		printlnFn("No products")
		return
	}
	for _, p := range products {
		line := fmt.Sprintf("%s  %-25s %8.2f %s  qty=%d  [%s]",
			p.ID, p.Name, p.Price, p.Currency, p.Quantity, p.Status)
		if p.PendingSync {
			line += "  *pending"
		}
		printlnFn(line)
	}
}

func (a *App) printSyncResult(res *sync.SyncResult) {
	if !res.Success {
		printlnFn("Sync failed:", res.Error)
		return
	}
	kind := "Sync"
	if res.Full {
		kind = "Full sync"
	}
	printlnFn(fmt.Sprintf("%s done: pushed=%d pulled=%d conflicts=%d failed=%d",
		kind, res.Pushed, res.Pulled, res.Conflicts, res.Failed))
}

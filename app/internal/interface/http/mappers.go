package http

import (
	"time"

	"github.com/shopspring/decimal"

	domartwork "example.com/gallery-storefront/app/internal/domain/artwork"
	domcart "example.com/gallery-storefront/app/internal/domain/cart"
	domcategory "example.com/gallery-storefront/app/internal/domain/category"
	dominquiry "example.com/gallery-storefront/app/internal/domain/inquiry"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
	domuser "example.com/gallery-storefront/app/internal/domain/user"
	dashboarduc "example.com/gallery-storefront/app/internal/usecase/dashboard"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func mapUser(u *domuser.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role_code": u.RoleCode,
	}
}

func mapCategory(c *domcategory.Category) map[string]any {
	return map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"slug":        c.Slug,
		"description": c.Description,
		"is_active":   c.IsActive,
	}
}

func mapVariant(v domartwork.Variant) map[string]any {
	return map[string]any{
		"id":               v.ID,
		"kind":             v.Kind,
		"name":             v.Name,
		"price_adjustment": money(v.PriceAdjustment),
		"processing_days":  v.ProcessingDays,
		"is_active":        v.IsActive,
	}
}

func mapImage(img domartwork.Image) map[string]any {
	return map[string]any{
		"id":       img.ID,
		"url":      img.URL,
		"alt_text": img.AltText,
		"position": img.Position,
	}
}

// mapArtwork renders the public view; inactive variants are hidden unless
// admin is set.
func mapArtwork(a *domartwork.Artwork, admin bool) map[string]any {
	images := make([]map[string]any, 0, len(a.Images))
	for _, img := range a.Images {
		images = append(images, mapImage(img))
	}
	variants := make([]map[string]any, 0, len(a.Variants))
	for _, v := range a.Variants {
		if !admin && !v.IsActive {
			continue
		}
		variants = append(variants, mapVariant(v))
	}

	resp := map[string]any{
		"id":          a.ID,
		"title":       a.Title,
		"slug":        a.Slug,
		"artist":      a.Artist,
		"description": a.Description,
		"medium":      a.Medium,
		"width_cm":    a.WidthCM.String(),
		"height_cm":   a.HeightCM.String(),
		"year":        a.Year,
		"price":       money(a.Price),
		"in_stock":    a.Stock > 0,
		"category_id": a.CategoryID,
		"is_featured": a.IsFeatured,
		"images":      images,
		"variants":    variants,
	}
	if admin {
		resp["stock"] = a.Stock
		resp["is_active"] = a.IsActive
		resp["created_at"] = a.CreatedAt.UTC()
		resp["updated_at"] = a.UpdatedAt.UTC()
	}
	return resp
}

func mapQuote(q domartwork.Quote) map[string]any {
	return map[string]any{
		"artwork_id":      q.ArtworkID,
		"variant_id":      q.VariantID,
		"title":           q.Title,
		"variant_name":    q.VariantName,
		"unit_price":      money(q.UnitPrice),
		"processing_days": q.ProcessingDays,
		"in_stock":        q.Stock > 0,
	}
}

func mapCart(cart *domcart.Cart) map[string]any {
	items := make([]map[string]any, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, map[string]any{
			"artwork_id":      item.ArtworkID,
			"variant_id":      item.VariantID,
			"quantity":        item.Quantity,
			"title":           item.Title,
			"variant_name":    item.VariantName,
			"unit_price":      money(item.UnitPrice),
			"line_total":      money(item.LineTotal),
			"processing_days": item.ProcessingDays,
			"available":       item.Available,
		})
	}
	return map[string]any{
		"user_id":  cart.UserID,
		"items":    items,
		"subtotal": money(cart.Subtotal),
	}
}

func mapShipping(s domorder.ShippingDetails) map[string]any {
	return map[string]any{
		"name":        s.Name,
		"email":       s.Email,
		"phone":       s.Phone,
		"line1":       s.Line1,
		"line2":       s.Line2,
		"city":        s.City,
		"province":    s.Province,
		"postal_code": s.PostalCode,
		"country":     s.Country,
	}
}

func mapOrder(o *domorder.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, map[string]any{
			"artwork_id":      item.ArtworkID,
			"variant_id":      item.VariantID,
			"title":           item.Title,
			"variant_name":    item.VariantName,
			"unit_price":      money(item.UnitPrice),
			"quantity":        item.Quantity,
			"line_total":      money(item.LineTotal()),
			"processing_days": item.ProcessingDays,
		})
	}

	return map[string]any{
		"id":               o.ID,
		"reference":        o.Reference,
		"user_id":          o.UserID,
		"status":           o.Status,
		"payment_provider": o.PaymentProvider,
		"payment_status":   o.PaymentStatus,
		"currency":         o.Currency,
		"subtotal":         money(o.Subtotal),
		"shipping_fee":     money(o.ShippingFee),
		"total":            money(o.Total),
		"shipping":         mapShipping(o.Shipping),
		"tracking_number":  o.TrackingNumber,
		"reserved_until":   timeOrNil(o.ReservedUntil),
		"paid_at":          timeOrNil(o.PaidAt),
		"shipped_at":       timeOrNil(o.ShippedAt),
		"cancelled_at":     timeOrNil(o.CancelledAt),
		"created_at":       o.CreatedAt.UTC(),
		"items":            items,
	}
}

func mapInquiry(i *dominquiry.Inquiry) map[string]any {
	return map[string]any{
		"id":         i.ID,
		"artwork_id": i.ArtworkID,
		"name":       i.Name,
		"email":      i.Email,
		"phone":      i.Phone,
		"subject":    i.Subject,
		"message":    i.Message,
		"status":     i.Status,
		"created_at": i.CreatedAt.UTC(),
	}
}

func mapSummary(s *dashboarduc.Summary) map[string]any {
	byStatus := map[string]int64{}
	for _, st := range []domorder.Status{domorder.StatusPending, domorder.StatusPaid, domorder.StatusShipped, domorder.StatusCancelled} {
		byStatus[string(st)] = s.OrdersByStatus[st]
	}
	lowStock := make([]map[string]any, 0, len(s.LowStock))
	for _, a := range s.LowStock {
		lowStock = append(lowStock, map[string]any{"id": a.ID, "title": a.Title, "stock": a.Stock})
	}
	recent := make([]map[string]any, 0, len(s.RecentOrders))
	for _, o := range s.RecentOrders {
		recent = append(recent, map[string]any{
			"id":         o.ID,
			"reference":  o.Reference,
			"status":     o.Status,
			"total":      money(o.Total),
			"currency":   o.Currency,
			"created_at": o.CreatedAt.UTC(),
		})
	}
	return map[string]any{
		"revenue":          money(s.Revenue),
		"orders_by_status": byStatus,
		"artwork_count":    s.ArtworkCount,
		"low_stock":        lowStock,
		"new_inquiries":    s.NewInquiries,
		"recent_orders":    recent,
	}
}

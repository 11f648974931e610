package source

import (
	"database/sql"

	"github.com/dshills/searchsync/pkg/types"
)

// scanRecord reads one row in itemColumns order.
func scanRecord(rows *sql.Rows) (types.SourceRecord, error) {
	var (
		rec types.SourceRecord

		name, description, price, veg, status        sql.NullString
		avgRating, ratingCount, image                sql.NullString
		timeStarts, timeEnds, createdAt, updatedAt   sql.NullString
		storeName, deliveryTime, latitude, longitude sql.NullString
		categoryName                                 sql.NullString

		moduleID, storeID, zoneID, categoryID sql.NullInt64
	)

	err := rows.Scan(
		&rec.ID, &name, &description, &price, &veg, &status,
		&avgRating, &ratingCount, &image, &timeStarts, &timeEnds,
		&createdAt, &updatedAt, &moduleID,
		&storeID, &storeName, &deliveryTime, &latitude, &longitude, &zoneID,
		&categoryID, &categoryName,
	)
	if err != nil {
		return rec, err
	}

	rec.Name = nullString(name)
	rec.Description = nullString(description)
	rec.Price = nullString(price)
	rec.Veg = nullString(veg)
	rec.Status = nullString(status)
	rec.AvgRating = nullString(avgRating)
	rec.RatingCount = nullString(ratingCount)
	rec.Image = nullString(image)
	rec.AvailableTimeStarts = nullString(timeStarts)
	rec.AvailableTimeEnds = nullString(timeEnds)
	rec.CreatedAt = nullString(createdAt)
	rec.UpdatedAt = nullString(updatedAt)
	rec.ModuleID = nullInt(moduleID)

	rec.StoreID = nullInt(storeID)
	rec.StoreName = nullString(storeName)
	rec.DeliveryTime = nullString(deliveryTime)
	rec.Latitude = nullString(latitude)
	rec.Longitude = nullString(longitude)
	rec.ZoneID = nullInt(zoneID)

	rec.CategoryID = nullInt(categoryID)
	rec.CategoryName = nullString(categoryName)

	return rec, nil
}

// scanStore reads one row in storeColumns order.
func scanStore(rows *sql.Rows) (types.StoreRecord, error) {
	var (
		rec types.StoreRecord

		name, slug, phone, email, logo, cover sql.NullString
		address, latitude, longitude          sql.NullString
		status, active, veg, nonVeg, delivery sql.NullString
		takeAway, deliveryTime                sql.NullString
		orderCount, totalOrder, featured      sql.NullString
		createdAt, updatedAt                  sql.NullString

		zoneID, moduleID sql.NullInt64
	)

	err := rows.Scan(
		&rec.ID, &name, &slug, &phone, &email, &logo, &cover,
		&address, &latitude, &longitude,
		&status, &active, &veg, &nonVeg, &delivery, &takeAway,
		&deliveryTime, &zoneID, &moduleID,
		&orderCount, &totalOrder, &featured,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return rec, err
	}

	rec.Name = nullString(name)
	rec.Slug = nullString(slug)
	rec.Phone = nullString(phone)
	rec.Email = nullString(email)
	rec.Logo = nullString(logo)
	rec.CoverPhoto = nullString(cover)
	rec.Address = nullString(address)
	rec.Latitude = nullString(latitude)
	rec.Longitude = nullString(longitude)
	rec.Status = nullString(status)
	rec.Active = nullString(active)
	rec.Veg = nullString(veg)
	rec.NonVeg = nullString(nonVeg)
	rec.Delivery = nullString(delivery)
	rec.TakeAway = nullString(takeAway)
	rec.DeliveryTime = nullString(deliveryTime)
	rec.ZoneID = nullInt(zoneID)
	rec.ModuleID = nullInt(moduleID)
	rec.OrderCount = nullString(orderCount)
	rec.TotalOrder = nullString(totalOrder)
	rec.Featured = nullString(featured)
	rec.CreatedAt = nullString(createdAt)
	rec.UpdatedAt = nullString(updatedAt)

	return rec, nil
}

// scanCategory reads one row in categoryColumns order.
func scanCategory(rows *sql.Rows) (types.CategoryRecord, error) {
	var (
		rec types.CategoryRecord

		name, slug, image, position, status, featured sql.NullString
		createdAt, updatedAt                          sql.NullString

		parentID, moduleID sql.NullInt64
	)

	err := rows.Scan(
		&rec.ID, &name, &slug, &image, &parentID, &position,
		&status, &featured, &moduleID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return rec, err
	}

	rec.Name = nullString(name)
	rec.Slug = nullString(slug)
	rec.Image = nullString(image)
	rec.ParentID = nullInt(parentID)
	rec.Position = nullString(position)
	rec.Status = nullString(status)
	rec.Featured = nullString(featured)
	rec.ModuleID = nullInt(moduleID)
	rec.CreatedAt = nullString(createdAt)
	rec.UpdatedAt = nullString(updatedAt)

	return rec, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

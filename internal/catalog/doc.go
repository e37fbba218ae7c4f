// Package catalog compiles CUE product catalogs.
//
// A catalog declares products, the configurable options each product offers
// and pricelists with quantity discount tiers:
//
//	product: desk: {
//		name:         "Standing desk"
//		list_price:   100
//		configurable: true
//		options: drawer: {qty_type: "proportional", default: true, default_qty: 2}
//	}
//	product: drawer: {name: "Drawer", list_price: 4}
//	pricelist: retail: tiers: [{min_qty: 10, discount: 5}]
//
// Sources are unified with an embedded schema, so missing or mistyped
// fields are reported with their file position.
package catalog

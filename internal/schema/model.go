// Package schema absorbs schema drift between input files.
//
// Upstream generators do not agree on column names: one store writes "qty",
// another "quantity", and a buggy release renames "sale_date" to
// "date_of_sale". A RenameTable maps every known drifted name to its canonical
// name. Normalize turns a file's header into a Plan, Plan.Apply renames the
// file's columns, and Reconcile aligns the differently shaped sets of one
// batch on the union of their columns.
package schema

// RenameTable maps a drifted column name to its canonical name. Columns that
// are not keys of the table pass through unchanged.
type RenameTable map[string]string

// Clone returns an independent copy of t. A nil table stays nil.
func (t RenameTable) Clone() RenameTable {
	if t == nil {
		return nil
	}
	out := make(RenameTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// SalesRenames is the rename table for store sales files.
//
// date_of_sale is the header written by stores after the drifted release;
// sale_date is the original and canonical name.
func SalesRenames() RenameTable {
	return RenameTable{
		"qty":          "quantity",
		"quant":        "quantity",
		"count":        "quantity",
		"price":        "unit_price",
		"cost":         "unit_price",
		"tx_id":        "transaction_id",
		"txn_id":       "transaction_id",
		"prod_id":      "product_id",
		"item_id":      "product_id",
		"total":        "total_amount",
		"amount":       "total_amount",
		"date":         "transaction_timestamp",
		"timestamp":    "transaction_timestamp",
		"date_of_sale": "sale_date",
	}
}

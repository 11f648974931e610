// Package bulk writes documents to an OpenSearch-compatible search index.
//
// Client.Bulk sends one newline-delimited bulk request per call. In full mode
// every document is an index action and replaces the stored document. In
// patch mode every document is an update action carrying {"doc": ...}, which
// the engine merges into the stored document so fields the patch does not
// mention survive.
//
// # Failure Accounting
//
// A transport failure or a non-2xx response fails every document of the
// request. Otherwise each response item is judged on its own: an error object
// or a status of 300 or more fails that document only. Response items missing
// from a short response count as failed. Nothing is retried.
//
// # Basic Usage
//
//	c := bulk.New(bulk.Config{URL: "http://localhost:9200"})
//	res, err := c.Bulk(ctx, "food_items", types.WriteFull, []bulk.Item{
//	    {ID: "42", Doc: doc},
//	})
//	fmt.Printf("%d ok, %d failed\n", res.Succeeded, res.Failed)
//
// The client also covers the small set of index administration calls the
// sync tool needs: cluster health, index creation with the item mapping,
// document lookup, refresh and count.
package bulk

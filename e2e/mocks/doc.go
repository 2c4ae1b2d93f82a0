// Package mocks provides mock implementations for end-to-end tests.
//
// GraphMock stands in for the Graph Send API:
//
//	graph := mocks.NewGraphMock()
//	defer graph.Close()
//
//	client := messenger.NewClient("token", graph.URL(), time.Second)
//	// ... drive the bot ...
//	replies := graph.Messages("psid-1")
package mocks

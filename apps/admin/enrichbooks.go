package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) enrichBooks() error {
	count, err := cli.bookSvc.EnrichMissing(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d book(s) enriched\n", count)
	return nil
}

// knowledgectl provisions the knowledge collections the chat backend
// routes to: create vector stores, list them, and upload knowledge
// files.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

func newClient() (*openai.Client, error) {
	_ = godotenv.Load()
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return openai.NewClient(apiKey), nil
}

func main() {
	root := &cobra.Command{
		Use:           "knowledgectl",
		Short:         "Manage knowledge vector stores for the assistant",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(listStoresCmd(), createStoreCmd(), uploadCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func listStoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-stores",
		Short: "List existing vector stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			stores, err := client.ListVectorStores(context.Background(), openai.Pagination{})
			if err != nil {
				return fmt.Errorf("list vector stores: %w", err)
			}
			for _, vs := range stores.VectorStores {
				fmt.Printf("%s\t%s\tfiles=%d\n", vs.ID, vs.Name, vs.FileCounts.Total)
			}
			return nil
		},
	}
}

func createStoreCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-store",
		Short: "Create a vector store and print its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			vs, err := client.CreateVectorStore(context.Background(), openai.VectorStoreRequest{Name: name})
			if err != nil {
				return fmt.Errorf("create vector store %q: %w", name, err)
			}
			fmt.Printf("created %s\t%s\n", vs.ID, vs.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "store name, e.g. icfes-matematicas")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func uploadCmd() *cobra.Command {
	var storeID, file string
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a knowledge file into a vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx := context.Background()

			f, err := client.CreateFile(ctx, openai.FileRequest{
				FileName: filepath.Base(file),
				FilePath: file,
				Purpose:  string(openai.PurposeAssistants),
			})
			if err != nil {
				return fmt.Errorf("upload file %q: %w", file, err)
			}

			if _, err := client.CreateVectorStoreFile(ctx, storeID, openai.VectorStoreFileRequest{
				FileID: f.ID,
			}); err != nil {
				return fmt.Errorf("attach file to store %s: %w", storeID, err)
			}

			fmt.Printf("uploaded %s -> %s (file id %s)\n", file, storeID, f.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&storeID, "store-id", "", "target vector store id")
	cmd.Flags().StringVar(&file, "file", "", "path to the knowledge file")
	_ = cmd.MarkFlagRequired("store-id")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jmporch/musings/internal/db"
	"github.com/jmporch/musings/internal/model"
	"github.com/jmporch/musings/internal/repository"
)

var (
	includeDeleted bool

	addTitle   string
	addSummary string
	addContent string
	addTags    string
	addPublic  bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new blog or overwrite an existing one (cannot be undone)",
	RunE: func(cmd *cobra.Command, args []string) error {
		paramsPath, _ := cmd.Flags().GetString("params")

		data, err := os.ReadFile(paramsPath)
		if err != nil {
			return fmt.Errorf("reading blog params: %w", err)
		}
		params := make(map[string]string)
		if err := json.Unmarshal(data, &params); err != nil {
			return fmt.Errorf("parsing blog params: %w", err)
		}

		if id := params[model.KeyBlogID]; id != "" {
			cfg.Blog.ID = id
		}
		if err := os.MkdirAll(cfg.Blog.DataDir, 0o755); err != nil {
			return err
		}

		database := db.NewSQLite(cfg.DBPath())
		defer database.Close()
		if err := database.Reset(params); err != nil {
			return err
		}

		fmt.Println(okStyle.Render("Created blog ") + idStyle.Render(cfg.Blog.ID) +
			dimStyle.Render(" ("+cfg.DBPath()+")"))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the blog's configuration values",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, repo, err := openRepo()
		if err != nil {
			return err
		}
		defer database.Close()

		blogCfg := repo.Config()
		params := make([]string, 0, len(blogCfg))
		for param := range blogCfg {
			params = append(params, param)
		}
		sort.Strings(params)

		for _, param := range params {
			fmt.Println(titleStyle.Render(param) + dimStyle.Render(" = ") + blogCfg[param])
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the blog's posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, repo, err := openRepo()
		if err != nil {
			return err
		}
		defer database.Close()

		posts, err := repo.List(includeDeleted, true)
		if err != nil {
			return err
		}

		for _, post := range posts {
			line := idStyle.Render(string(post.ID)) + "  " + titleStyle.Render(post.Title)
			line += dimStyle.Render("  " + post.Published.String())
			if !post.Public {
				line += dimStyle.Render("  [private]")
			}
			if post.Deleted {
				line += errStyle.Render("  [deleted]")
			}
			fmt.Println(line)
		}
		fmt.Println(dimStyle.Render(fmt.Sprintf("%d post(s)", len(posts))))
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Retrieve the post with the given id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, repo, err := openRepo()
		if err != nil {
			return err
		}
		defer database.Close()

		post, err := repo.Get(args[0], includeDeleted)
		if err != nil {
			return err
		}
		return printPostJSON(post)
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a new post to the blog",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, repo, err := openRepo()
		if err != nil {
			return err
		}
		defer database.Close()

		post, err := repo.Create(repository.CreatePost{
			Title:   addTitle,
			Summary: addSummary,
			Content: addContent,
			Tags:    addTags,
			Public:  addPublic,
		})
		if err != nil {
			return err
		}

		fmt.Println(okStyle.Render("Added post ") + idStyle.Render(string(post.ID)))
		return printPostJSON(post)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Modify fields of an existing post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, repo, err := openRepo()
		if err != nil {
			return err
		}
		defer database.Close()

		patch := repository.PostPatch{
			Title:   addTitle,
			Summary: addSummary,
			Content: addContent,
			Tags:    addTags,
		}
		// Only a flag the caller actually set should change visibility.
		if cmd.Flags().Changed("public") {
			patch.Public = &addPublic
		}

		post, err := repo.Edit(args[0], patch)
		if err != nil {
			return err
		}

		fmt.Println(okStyle.Render("Edited post ") + idStyle.Render(string(post.ID)))
		return printPostJSON(post)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Mark the post with the given id as deleted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, repo, err := openRepo()
		if err != nil {
			return err
		}
		defer database.Close()

		post, err := repo.Delete(args[0])
		if err != nil {
			return err
		}

		fmt.Println(okStyle.Render("Deleted post ") + idStyle.Render(string(post.ID)))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a directory of text files as posts",
	Long: `Import reads every .md and .txt file in a directory and appends each as a
post, using the file name (without extension) as the title. Imported posts
start private; publish them with edit --public.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("path")
		if dir == "" {
			return fmt.Errorf("--path is required")
		}

		database, repo, err := openRepo()
		if err != nil {
			return err
		}
		defer database.Close()

		files, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("reading directory %s: %w", dir, err)
		}

		imported := 0
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			ext := filepath.Ext(file.Name())
			if ext != ".md" && ext != ".txt" {
				continue
			}

			content, err := os.ReadFile(filepath.Join(dir, file.Name()))
			if err != nil {
				fmt.Fprintln(os.Stderr, errStyle.Render("Skipping ")+file.Name()+": "+err.Error())
				continue
			}

			post, err := repo.Create(repository.CreatePost{
				Title:   file.Name()[:len(file.Name())-len(ext)],
				Content: string(content),
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, errStyle.Render("Skipping ")+file.Name()+": "+err.Error())
				continue
			}

			fmt.Println(okStyle.Render("Imported ") + idStyle.Render(string(post.ID)) + "  " + post.Title)
			imported++
		}

		fmt.Println(dimStyle.Render(fmt.Sprintf("%d file(s) imported", imported)))
		return nil
	},
}

func printPostJSON(post *model.Post) error {
	out, err := json.MarshalIndent(post, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	initCmd.Flags().String("params", "data/blog.json", "JSON file with the new blog's config parameters")

	listCmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "Include deleted posts")
	getCmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "Include deleted posts")

	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVar(&addTitle, "title", "", "Post title")
		c.Flags().StringVar(&addSummary, "summary", "", "Post summary")
		c.Flags().StringVar(&addContent, "content", "", "Post content")
		c.Flags().StringVar(&addTags, "tags", "", "Comma-separated tags")
		c.Flags().BoolVar(&addPublic, "public", false, "Make the post public")
	}

	importCmd.Flags().String("path", "", "Directory containing .md/.txt files to import")

	rootCmd.AddCommand(initCmd, configCmd, listCmd, getCmd, addCmd, editCmd, deleteCmd, importCmd)
}

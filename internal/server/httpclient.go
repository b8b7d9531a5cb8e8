package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

// httpGetJSON issues a GET and pretty-prints the JSON response body to
// cmd's stdout, the shape every `api` subcommand shares.
func httpGetJSON(cmd *cobra.Command, url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(cmd, resp)
}

// httpPostJSON POSTs body (marshaled as JSON, or an empty object if nil)
// and pretty-prints the JSON response.
func httpPostJSON(cmd *cobra.Command, url string, body any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	} else {
		buf.WriteString("{}")
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(cmd, resp)
}

// httpUploadFile POSTs a file's raw bytes as the upload() verb's body.
func httpUploadFile(cmd *cobra.Command, url, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	req, err := http.NewRequest(http.MethodPost, url, f)
	if err != nil {
		return err
	}
	req.Header.Set("X-Origin-Name", path)
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(cmd, resp)
}

func printResponse(cmd *cobra.Command, resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s: %s", resp.Status, string(data))
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}
	return nil
}

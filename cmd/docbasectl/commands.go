package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gogotex/docbase/internal/collection"
	"github.com/gogotex/docbase/internal/document"
	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ed25519"
)

// keyFile is the on-disk form written by keygen.
type keyFile struct {
	Authority  identity.Key `json:"authority"`
	PrivateKey string       `json:"private_key"`
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docbasectl",
		Short:         "Operator tools for docbase authorities and records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newKeygenCmd(), newSignCmd(), newDeriveCmd(), newDecodeCmd())
	return root
}

func newKeygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 authority keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := identity.GenerateKeypair()
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(keyFile{Authority: pub, PrivateKey: base58.Encode(priv)}, "", "  ")
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return err
			}
			if err := os.WriteFile(out, append(b, '\n'), 0o600); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), pub)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the keypair to this file instead of stdout")
	return cmd
}

func newSignCmd() *cobra.Command {
	var keyPath, nonce string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a login challenge nonce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := loadPrivateKey(keyPath)
			if err != nil {
				return err
			}
			sig := ed25519.Sign(priv, identity.LoginMessage(nonce))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), base58.Encode(sig))
			return err
		},
	}
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "keypair file written by keygen")
	cmd.Flags().StringVarP(&nonce, "nonce", "n", "", "nonce returned by /auth/challenge")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("nonce")
	return cmd
}

func newDeriveCmd() *cobra.Command {
	var authority, name string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the derived address of a named collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := identity.Parse(authority)
			if err != nil {
				return fmt.Errorf("authority: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), identity.DeriveCollection(a, name))
			return err
		},
	}
	cmd.Flags().StringVarP(&authority, "authority", "a", "", "base58 collection authority")
	cmd.Flags().StringVar(&name, "name", "", "collection name (the seed)")
	_ = cmd.MarkFlagRequired("authority")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var encoding string
	cmd := &cobra.Command{
		Use:   "decode [record]",
		Short: "Decode a raw collection or document record (reads stdin without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in string
			if len(args) == 1 {
				in = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				in = string(b)
			}
			raw, err := decodeBytes(strings.TrimSpace(in), encoding)
			if err != nil {
				return err
			}
			v, err := decodeRecord(raw)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	cmd.Flags().StringVarP(&encoding, "encoding", "e", "base64", "input encoding: base64, hex or base58")
	return cmd
}

func loadPrivateKey(path string) (ed25519.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf keyFile
	if err := json.Unmarshal(b, &kf); err != nil {
		return nil, fmt.Errorf("key file: %w", err)
	}
	priv, err := base58.Decode(kf.PrivateKey)
	if err != nil || len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("key file: invalid private key")
	}
	return ed25519.PrivateKey(priv), nil
}

func decodeBytes(s, encoding string) ([]byte, error) {
	switch encoding {
	case "base64":
		return base64.StdEncoding.DecodeString(s)
	case "hex":
		return hex.DecodeString(s)
	case "base58":
		return base58.Decode(s)
	}
	return nil, fmt.Errorf("unknown encoding %q", encoding)
}

// decodeRecord picks the layout from the record length.
func decodeRecord(raw []byte) (interface{}, error) {
	switch len(raw) {
	case collection.RecordSize:
		var c collection.Collection
		if err := c.UnmarshalBinary(raw); err != nil {
			return nil, err
		}
		return struct {
			Kind string `json:"kind"`
			collection.Collection
		}{"collection", c}, nil
	case document.RecordSize:
		var d document.Document
		if err := d.UnmarshalBinary(raw); err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"kind":      "document",
			"authority": d.Authority,
			"content":   d.Text(),
		}, nil
	}
	return nil, fault.ErrInvalidLayout
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/ocms-blog/internal/content"
)

// DemoPreviewRef is the preview ref holding the demo draft revision.
const DemoPreviewRef = "demo-preview"

var demoEpoch = time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC)

func paragraph(text string) content.Block {
	return content.Block{Type: "paragraph", Text: text}
}

func demoDocuments() []DocumentInput {
	lorem := strings.Repeat("Lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor. ", 12)

	return []DocumentInput{
		{
			UID:            "como-utilizar-hooks",
			FirstPublished: demoEpoch,
			Title:          "Como utilizar Hooks",
			Subtitle:       "Pensando em sincronização em vez de ciclos de vida",
			Author:         "Joseph Oliveira",
			BannerURL:      "https://images.example.com/hooks.png",
			Sections: []content.Section{
				{Heading: "Proin et varius", Body: []content.Block{paragraph(lorem), paragraph(lorem)}},
				{Heading: "Cras laoreet mi", Body: []content.Block{paragraph(lorem)}},
			},
		},
		{
			UID:            "criando-um-app-cra-do-zero",
			FirstPublished: demoEpoch.Add(24 * time.Hour),
			LastPublished:  demoEpoch.Add(72 * time.Hour),
			Title:          "Criando um app CRA do zero",
			Subtitle:       "Tudo sobre como criar a sua primeira aplicação utilizando Create React App",
			Author:         "Danilo Vieira",
			Sections: []content.Section{
				{Heading: "Instalação", Body: []content.Block{
					paragraph(lorem),
					{Type: "list-item", Text: "Crie o projeto"},
					{Type: "list-item", Text: "Rode o servidor de desenvolvimento"},
				}},
			},
		},
		{
			UID:            "mapas-com-react-usando-leaflet",
			FirstPublished: demoEpoch.Add(48 * time.Hour),
			Title:          "Mapas com React usando Leaflet",
			Subtitle:       "Aprenda a exibir mapas interativos",
			Author:         "Rafaela Souza",
			Sections: []content.Section{
				{Heading: "Começando", Body: []content.Block{paragraph(lorem)}},
			},
		},
		{
			UID:            "testes-automatizados",
			FirstPublished: demoEpoch.Add(96 * time.Hour),
			Title:          "Testes automatizados",
			Author:         "Joseph Oliveira",
			Sections:       []content.Section{},
		},
	}
}

// SeedDemo publishes demo posts and one draft revision when the repository is
// empty.
func SeedDemo(ctx context.Context, repo *Repository, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("documents already exist, skipping seed", "count", n)
		return nil
	}

	docs := demoDocuments()
	for _, in := range docs {
		raw, err := BuildDocument(repo.docType, in)
		if err != nil {
			return fmt.Errorf("building demo document %q: %w", in.UID, err)
		}
		if err := repo.Save(ctx, raw); err != nil {
			return err
		}
	}

	draft := docs[0]
	draft.Title = draft.Title + " (rascunho)"
	draft.LastPublished = demoEpoch.Add(30 * 24 * time.Hour)
	draft.Sections = append(draft.Sections, content.Section{
		Heading: "Nova seção",
		Body:    []content.Block{paragraph("Conteúdo ainda não publicado.")},
	})
	raw, err := BuildDocument(repo.docType, draft)
	if err != nil {
		return fmt.Errorf("building demo draft: %w", err)
	}
	if err := repo.SaveRevision(ctx, DemoPreviewRef, raw); err != nil {
		return err
	}

	logger.Info("demo content seeded", "documents", len(docs), "preview_ref", DemoPreviewRef)
	return nil
}

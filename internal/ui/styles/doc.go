// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling for the aichat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - Assistant label, selected code block border, focus accents
  - Cyan - User label and the host command prompt
  - Emerald - Successful command status
  - Amber - Hints and provider badges
  - Rose - Error entries and failed commands

Package-level text styles (UserLabel, AssistantLabel, Muted, ErrorText) are
shared by the renderer and the views.

# Theme (theme.go)

NewTheme inspects the terminal with termenv and builds the pane styles for
the sidebar and the host command line:

	theme := styles.NewTheme()
	sidebar := theme.SidebarFocused.Width(w).Render(body)
*/
package styles

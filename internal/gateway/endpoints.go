package gateway

import "refresher/internal/model"

// Action names one moderation request kind.
type Action int

const (
	ActionVote Action = iota
	ActionDeletePost
	ActionBlock
	ActionSetNotice
	ActionSetRecommend
	ActionDeleteComment
	ActionCaptcha
)

// Actions lists every moderation action in table order.
var Actions = []Action{
	ActionVote, ActionDeletePost, ActionBlock, ActionSetNotice,
	ActionSetRecommend, ActionDeleteComment, ActionCaptcha,
}

func (a Action) String() string {
	switch a {
	case ActionVote:
		return "vote"
	case ActionDeletePost:
		return "delete_post"
	case ActionBlock:
		return "block"
	case ActionSetNotice:
		return "set_notice"
	case ActionSetRecommend:
		return "set_recommend"
	case ActionDeleteComment:
		return "delete_comment"
	case ActionCaptcha:
		return "captcha"
	}
	return "unknown"
}

// Endpoint holds the path of one action for standard and mini galleries.
// Paths are relative to the client's base URL.
type Endpoint struct {
	Standard string
	Mini     string
}

// Endpoints maps each action to its paths.
type Endpoints map[Action]Endpoint

// DefaultEndpoints returns the paths used by the live site. Voting and
// captcha sessions have a single URL for every gallery type, so their
// Mini path is the shared one.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		ActionVote: {
			Standard: "board/recommend/vote",
			Mini:     "board/recommend/vote",
		},
		ActionDeletePost: {
			Standard: "ajax/minor_manager_board_ajax/delete_list",
			Mini:     "ajax/mini_manager_board_ajax/delete_list",
		},
		ActionBlock: {
			Standard: "ajax/minor_manager_board_ajax/update_avoid_list",
			Mini:     "ajax/mini_manager_board_ajax/update_avoid_list",
		},
		ActionSetNotice: {
			Standard: "ajax/minor_manager_board_ajax/set_notice",
			Mini:     "ajax/mini_manager_board_ajax/set_notice",
		},
		ActionSetRecommend: {
			Standard: "ajax/minor_manager_board_ajax/set_recommend",
			Mini:     "ajax/mini_manager_board_ajax/set_recommend",
		},
		ActionDeleteComment: {
			Standard: "ajax/minor_manager_board_ajax/delete_comment",
			Mini:     "ajax/mini_manager_board_ajax/delete_comment",
		},
		ActionCaptcha: {
			Standard: "kcaptcha/session",
			Mini:     "kcaptcha/session",
		},
	}
}

// Select returns the path for action given the originating link.
func (e Endpoints) Select(action Action, link string) string {
	ep := e[action]
	if model.SubTypeFromLink(link) == model.SubTypeMini {
		return ep.Mini
	}
	return ep.Standard
}

// Fixed paths that do not vary with the gallery sub-type.
const (
	pathComments      = "board/comment/"
	pathCommentRemove = "board/comment/comment_delete_submit"
	pathCommentWrite  = "board/forms/comment_submit"
	pathCaptchaImage  = "kcaptcha/image/"
)

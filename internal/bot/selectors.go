package bot

// CSS selectors on the demo shop.
const (
	selUsername    = "#user-name"
	selPassword    = "#password"
	selLoginButton = "#login-button"
	selErrorBanner = ".error-message-container.error"
	selInventory   = ".inventory_list"

	selSortSelect    = ".product_sort_container"
	selActiveSort    = "span.active_option"
	selOption        = "option"
	selCheckedOption = "option:checked"

	selMenuButton = "#react-burger-menu-btn"
	selResetLink  = "#reset_sidebar_link"
	selLogoutLink = "#logout_sidebar_link"

	selCartLink         = ".shopping_cart_link"
	selCartBadge        = ".shopping_cart_badge"
	selCartLinkBadge    = "span.shopping_cart_badge"
	selContinueShopping = "#continue-shopping"

	selProduct       = ".inventory_item"
	selProductName   = ".inventory_item_name"
	selProductButton = "button"

	selCartItem     = ".cart_item"
	selCartButton   = ".cart_button"
	selCheckout     = "#checkout"
	selFirstName    = "#first-name"
	selLastName     = "#last-name"
	selPostalCode   = "#postal-code"
	selContinue     = "#continue"
	selSummary      = ".checkout_summary_container"
	selFinish       = "#finish"
	selBackHome     = "#back-to-products"
	selProxyAddress = "pre"
)
